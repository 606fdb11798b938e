package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLevelGating(t *testing.T) {
	log := New("warn", "text")
	ctx := context.Background()
	if log.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be gated at warn level")
	}
	if !log.Enabled(ctx, slog.LevelError) {
		t.Error("error should pass at warn level")
	}
}

func TestNewOTLPLevelGating(t *testing.T) {
	ctx := context.Background()
	log, shutdown, err := NewOTLP(ctx, "hivemind-test", "error")
	if err != nil {
		t.Fatalf("NewOTLP: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	if log.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should be gated at error level")
	}
	if !log.Enabled(ctx, slog.LevelError) {
		t.Error("error should pass at error level")
	}
}
