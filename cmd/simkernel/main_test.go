package main

import (
	"testing"

	"github.com/l1jgo/simkernel/internal/config"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatal(err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Error("debug level not enabled")
	}

	log, err = newLogger(config.LoggingConfig{Level: "warn", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("info enabled at warn level")
	}

	if _, err := newLogger(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
}
