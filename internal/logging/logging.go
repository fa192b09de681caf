// Package logging builds the server's structured logger.
//
// Mirrors the console+file dual-sink setup the original chess server used
// (a color console sink plus a truncating file sink, both leveled), but on
// top of zap instead of a process-wide singleton.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger that writes to stdout and to logPath. verbose raises
// the console level to debug; the file sink always logs at debug level, as
// the original server's Logger did.
func New(verbose bool, logPath string) (*zap.Logger, error) {
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	file, err := os.Create(logPath)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg := encoderCfg
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleLevel := zapcore.InfoLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(file), zapcore.DebugLevel),
	)

	return zap.New(core).Named("chess-server"), nil
}
