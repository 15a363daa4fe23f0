package logger

import (
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"go.uber.org/zap/zapcore"
)

func TestParseZapLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		" Warn ":  zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"fatal":   zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseZapLevel(in); got != want {
			t.Errorf("parseZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestToHlogLevel(t *testing.T) {
	if toHlogLevel(zapcore.WarnLevel) != hlog.LevelWarn {
		t.Errorf("warn mapping")
	}
	if toHlogLevel(zapcore.PanicLevel) != hlog.LevelInfo {
		t.Errorf("unmapped level should fall back to info")
	}
}

func TestNamedBeforeInit(t *testing.T) {
	// Init 之前 Logger 是 Nop，不应 panic
	ForForm("rsvp", "f1").Info("noop")
}
