package logger

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	service  string
	hostname string
	handler  *zap.Logger
}

// NewLogger creates a JSON logger writing to stdout at the given level.
func NewLogger(service, level string) *Logger {
	return NewLoggerTo(service, level, os.Stdout)
}

// NewLoggerTo creates a JSON logger writing to w.
func NewLoggerTo(service, level string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encoderCfg.MessageKey = "message"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(lvl),
	)

	return &Logger{
		service:  service,
		hostname: hostname,
		handler: zap.New(core).With(
			zap.String("service", service),
			zap.String("hostname", hostname),
		),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{service: "nop", handler: zap.NewNop()}
}

func (l *Logger) Info(action, requestID, message string, fields ...zap.Field) {
	l.handler.Info(message, l.with(action, requestID, fields)...)
}

func (l *Logger) Debug(action, requestID, message string, fields ...zap.Field) {
	l.handler.Debug(message, l.with(action, requestID, fields)...)
}

func (l *Logger) Warn(action, requestID, message string, fields ...zap.Field) {
	l.handler.Warn(message, l.with(action, requestID, fields)...)
}

func (l *Logger) Error(action, requestID, message string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.StackSkip("stack", 1))
	l.handler.Error(message, l.with(action, requestID, fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.handler.Sync()
}

func (l *Logger) with(action, requestID string, fields []zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("action", action),
		zap.String("request_id", requestID),
	}, fields...)
}

// GenerateRequestID returns a fresh correlation id for a log sequence.
func GenerateRequestID() string {
	return uuid.NewString()
}
