package main

import (
	"go.uber.org/zap"

	punchcard "github.com/punchcard-app/punchcard"
)

// zapLogger adapts a sugared zap logger to the punchcard.Logger interface.
// Call sites pass either a printf-style format or a message followed by
// key/value pairs; the sugared ...w variants handle both shapes.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ punchcard.Logger = (*zapLogger)(nil)

func newZapLogger(debug bool) (*zapLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &zapLogger{s: base.Sugar()}, nil
}

func (l *zapLogger) Named(name string) *zapLogger {
	return &zapLogger{s: l.s.Named(name)}
}

func (l *zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

func (l *zapLogger) Sync() {
	_ = l.s.Sync()
}
