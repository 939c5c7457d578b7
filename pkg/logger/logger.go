// Package logger builds the process-wide zap logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string
	Format string // json|console
	File   string // rotated log file, empty disables it
}

func New(level string) (*zap.Logger, error) {
	return NewWithOptions(Options{Level: level, Format: "json"})
}

func NewWithOptions(opts Options) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl),
	}
	if opts.File != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     7,
				Compress:   true,
			}),
			lvl,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
