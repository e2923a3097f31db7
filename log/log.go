package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to w.
// Format must be one of: console or json.
// Level must be one of: error, warn, info, or debug; anything else means info.
func New(w io.Writer, format string, level string) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
	}
	config.LevelKey = "lvl"

	enc := zapcore.NewConsoleEncoder(config)
	if format == "json" {
		enc = zapcore.NewJSONEncoder(config)
	}

	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
}

// Nop returns a no-op logger
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Closer is a logger with the file it writes to.
type Closer struct {
	*zap.Logger
	io.Closer
	FilePath string
}

// Open returns a logger writing to path, which may also be stderr or stdout.
func Open(path, format, level string) (lc Closer, _ error) {
	var w io.Writer
	switch path {
	case "stderr", "":
		w = os.Stderr
		lc.FilePath = "stderr"
	case "stdout":
		w = os.Stdout
		lc.FilePath = "stdout"
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return lc, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return lc, fmt.Errorf("create log file: %w", err)
		}
		w = file
		lc.Closer = file
		lc.FilePath = file.Name()
	}
	lc.Logger = New(w, format, level)
	return lc, nil
}

func (lc Closer) Close() error {
	// ignore error because of https://github.com/uber-go/zap/issues/880 with stderr/stdout
	_ = lc.Logger.Sync()
	if lc.Closer == nil {
		return nil
	}
	return lc.Closer.Close()
}
