package logging

import (
	"log/slog"
	"testing"
)

func TestLevelParsesNamesCaseInsensitively(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"  INFO  ": slog.LevelInfo,
		"Warn":     slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for name, want := range cases {
		if got := Level(name); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}
