// Package utils holds small ambient helpers shared by every layer of the
// relay: logging, pooled buffers, error wrapping, and UUID codec.
package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDebug = iota
	LogInfo
	LogWarn
	LogError
	LogFatal

	DefaultLogLevel = LogInfo
)

// Logger is the process-wide structured logger. It starts as a sane
// stdout-only default so packages can log before InitLog runs (e.g. from
// init() or tests); InitLog swaps it for the configured sink.
var Logger = zap.New(zapcore.NewCore(
	zapcore.NewConsoleEncoder(consoleEncoderConfig()),
	zapcore.AddSync(os.Stdout),
	zap.NewAtomicLevelAt(zapcore.Level(DefaultLogLevel-1)),
))

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		EncodeLevel: zapcore.CapitalLevelEncoder,
		EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		LineEnding:  zapcore.DefaultLineEnding,
	}
}

// LogConfig controls where InitLog sends output. Path == "" keeps stdout.
type LogConfig struct {
	Level      int
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// InitLog rebuilds Logger from cfg. When Path is set, output is written
// through lumberjack so long-running relays rotate their own log files
// instead of growing one file forever.
func InitLog(cfg LogConfig) {
	level := cfg.Level
	if level == 0 {
		level = DefaultLogLevel
	}

	var sink zapcore.WriteSyncer
	if cfg.Path != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			Compress:   true,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), sink,
		zap.NewAtomicLevelAt(zapcore.Level(level-1)))

	Logger = zap.New(core)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// CanLogDebug/Info/Warn/Err return a checked entry only if that level is
// enabled, so callers avoid building zap.Field args on the hot path when
// the level is suppressed: `if ce := utils.CanLogDebug("x"); ce != nil { ce.Write(...) }`.
func CanLogDebug(msg string) *zapcore.CheckedEntry { return canLog(zap.DebugLevel, msg) }
func CanLogInfo(msg string) *zapcore.CheckedEntry  { return canLog(zap.InfoLevel, msg) }
func CanLogWarn(msg string) *zapcore.CheckedEntry  { return canLog(zap.WarnLevel, msg) }
func CanLogErr(msg string) *zapcore.CheckedEntry   { return canLog(zap.ErrorLevel, msg) }

func canLog(l zapcore.Level, msg string) *zapcore.CheckedEntry {
	return Logger.Check(l, msg)
}
