package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{level: "debug", format: "json", want: zapcore.DebugLevel},
		{level: "INFO", format: "console", want: zapcore.InfoLevel},
		{level: "warn", format: "", want: zapcore.WarnLevel},
		{level: "loud", format: "json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for level %q", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Fatalf("unexpected level: %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Fatalf("unexpected level: %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected nop logger")
	}
	if got := PartialFailure(); got.Key != "failure_class" || got.String != "partial_failure" {
		t.Fatalf("unexpected field: got %s=%s", got.Key, got.String)
	}
}
