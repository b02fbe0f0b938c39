package logging

import (
	"log/slog"
	"testing"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		env  string
		want slog.Level
	}{
		{"dev", slog.LevelDebug},
		{"DEV", slog.LevelDebug},
		{" test ", slog.LevelDebug},
		{"local", slog.LevelDebug},
		{"prod", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := levelFor(tc.env); got != tc.want {
			t.Fatalf("levelFor(%q) = %v, want %v", tc.env, got, tc.want)
		}
	}
}

func TestRenameAttr(t *testing.T) {
	if got := renameAttr(nil, slog.String(slog.MessageKey, "hi")); got.Key != "message" {
		t.Fatalf("message key = %q", got.Key)
	}
	if got := renameAttr(nil, slog.Any(slog.LevelKey, slog.LevelWarn)); got.Key != "severity" || got.Value.String() != "WARN" {
		t.Fatalf("level attr = %q=%q", got.Key, got.Value.String())
	}
	if got := renameAttr(nil, slog.String("custom", "v")); got.Key != "custom" {
		t.Fatalf("custom key renamed to %q", got.Key)
	}
}
