package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// WakePhraseChanged is true when the wake phrase or threshold changed.
	// Applying it requires rebuilding the wake detector.
	WakePhraseChanged bool

	// SpotifyChanged is true when Spotify credentials changed.
	SpotifyChanged bool

	// HeadChanged is true when the head enable flag or calibration path changed.
	HeadChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.WakePhraseChanged || d.SpotifyChanged || d.HeadChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Voice.WakePhrase != new.Voice.WakePhrase ||
		old.Voice.WakeThreshold != new.Voice.WakeThreshold {
		d.WakePhraseChanged = true
	}

	if old.Spotify != new.Spotify {
		d.SpotifyChanged = true
	}

	if old.Head != new.Head {
		d.HeadChanged = true
	}

	return d
}
