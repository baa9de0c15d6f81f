package logger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// New builds a JSON zap logger at the given level (debug, info, warn or
// error). Unknown levels fall back to info.
func New(level string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return logger.Sugar(), nil
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// SaramaLogger forwards sarama's client logs to a structured logger at debug
// level.
type SaramaLogger struct {
	log Logger
}

var _ sarama.StdLogger = (*SaramaLogger)(nil)

func NewSaramaLogger(log Logger) *SaramaLogger {
	return &SaramaLogger{log: log}
}

func (s *SaramaLogger) Print(v ...interface{}) {
	s.write(fmt.Sprint(v...))
}

func (s *SaramaLogger) Printf(format string, v ...interface{}) {
	s.write(fmt.Sprintf(format, v...))
}

func (s *SaramaLogger) Println(v ...interface{}) {
	s.write(fmt.Sprintln(v...))
}

func (s *SaramaLogger) write(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	s.log.Debugw(msg, "component", "sarama")
}

var installOnce sync.Once

// InstallSarama routes sarama's package level logger through log. Only the
// first call has an effect.
func InstallSarama(log Logger) {
	installOnce.Do(func() {
		sarama.Logger = NewSaramaLogger(log)
	})
}
