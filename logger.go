package gopixel

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger receives debug output. keyvals alternate between string keys and
// arbitrary values.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// DebugConfig selects which events reach the Logger.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRotations bool
	LogCache     bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config that logs every category
// once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRotations: true,
		LogCache:     true,
		RequestIDGen: uuid.NewString,
	}
}

// SimpleLogger writes leveled lines through the standard log package.
type SimpleLogger struct {
	out *log.Logger
}

// NewSimpleLogger returns a SimpleLogger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{out: log.New(os.Stderr, "gopixel ", log.LstdFlags)}
}

func (l *SimpleLogger) Debug(msg string, keyvals ...interface{}) { l.print("DEBUG", msg, keyvals) }
func (l *SimpleLogger) Info(msg string, keyvals ...interface{})  { l.print("INFO", msg, keyvals) }
func (l *SimpleLogger) Warn(msg string, keyvals ...interface{})  { l.print("WARN", msg, keyvals) }
func (l *SimpleLogger) Error(msg string, keyvals ...interface{}) { l.print("ERROR", msg, keyvals) }

func (l *SimpleLogger) print(level, msg string, keyvals []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i < len(keyvals); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(keyvals) {
			fmt.Fprintf(&b, "%v=%v", keyvals[i], keyvals[i+1])
		} else {
			fmt.Fprintf(&b, "%v=(missing)", keyvals[i])
		}
	}
	l.out.Println(b.String())
}

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil l yields a no-op logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Named("gopixel").Sugar()}
}

func (z *ZapLogger) Debug(msg string, keyvals ...interface{}) { z.sugar.Debugw(msg, keyvals...) }
func (z *ZapLogger) Info(msg string, keyvals ...interface{})  { z.sugar.Infow(msg, keyvals...) }
func (z *ZapLogger) Warn(msg string, keyvals ...interface{})  { z.sugar.Warnw(msg, keyvals...) }
func (z *ZapLogger) Error(msg string, keyvals ...interface{}) { z.sugar.Errorw(msg, keyvals...) }

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
