package audio

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV serialises mono float32 PCM as a 16-bit PCM WAV file. Used by
// providers that upload captured utterances over HTTP.
func EncodeWAV(pcm []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}

	buf := &seekableBuffer{}
	enc := wav.NewEncoder(buf, sampleRate, 16, 1, 1)

	ints := make([]int, len(pcm))
	for i, s := range pcm {
		// Clamp before widening; captures can clip slightly above full scale.
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		ints[i] = int(s * 32767)
	}

	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           ints,
	}); err != nil {
		return nil, fmt.Errorf("audio: wav write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: wav finalise: %w", err)
	}
	return buf.Bytes(), nil
}

// seekableBuffer adapts an in-memory byte slice to io.WriteSeeker, which the
// WAV encoder needs to backfill the RIFF header after the data chunk.
type seekableBuffer struct {
	buf bytes.Buffer
	pos int
}

func (b *seekableBuffer) Write(p []byte) (int, error) {
	if b.pos == b.buf.Len() {
		n, err := b.buf.Write(p)
		b.pos += n
		return n, err
	}
	// Overwrite in place (header rewrite path).
	data := b.buf.Bytes()
	n := copy(data[b.pos:], p)
	b.pos += n
	if n < len(p) {
		m, err := b.buf.Write(p[n:])
		b.pos += m
		return n + m, err
	}
	return n, nil
}

func (b *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(b.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("audio: invalid whence %d", whence)
	}
	if abs < 0 || abs > int64(b.buf.Len()) {
		return 0, fmt.Errorf("audio: seek out of range: %d", abs)
	}
	b.pos = int(abs)
	return abs, nil
}

func (b *seekableBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
