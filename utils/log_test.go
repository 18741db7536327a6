package utils

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestLogLevelGating(t *testing.T) {
	InitLog(LogConfig{Level: LogWarn})
	defer InitLog(LogConfig{})

	if ce := CanLogDebug("should be suppressed"); ce != nil {
		t.Fatal("debug entry should be nil when level is Warn")
	}

	if ce := CanLogErr("should be enabled"); ce == nil {
		t.Fatal("error entry should be enabled when level is Warn")
	} else {
		ce.Write(zap.Error(errors.New("test")))
	}
}

func TestInitLogRotation(t *testing.T) {
	InitLog(LogConfig{Level: LogInfo, Path: t.TempDir() + "/relay.log", MaxSizeMB: 1, MaxBackups: 1})
	defer InitLog(LogConfig{})

	if ce := CanLogInfo("rotation sink active"); ce != nil {
		ce.Write(zap.String("path", "set"))
	}
}
