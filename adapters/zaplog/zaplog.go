// Package zaplog adapts a zap.SugaredLogger to the identity.Logger interface.
package zaplog

import (
	identity "github.com/smartlocal/go-identity"
	"go.uber.org/zap"
)

// Logger wraps a sugared zap logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ identity.Logger = (*Logger)(nil)

// New builds a Logger from a zap.Logger, namespaced for identity output.
func New(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{sugar: base.Named("identity").Sugar()}
}

func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugw(format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infow(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnw(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorw(format, args...)
}
