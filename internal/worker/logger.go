package worker

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapLogger routes Temporal SDK logs into the process zap logger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger adapts logger for client.Options.Logger
func NewLogger(logger *zap.Logger) log.Logger {
	return &zapLogger{sugar: logger.Named("temporal").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *zapLogger) Debug(msg string, keyvals ...interface{}) { l.sugar.Debugw(msg, keyvals...) }
func (l *zapLogger) Info(msg string, keyvals ...interface{})  { l.sugar.Infow(msg, keyvals...) }
func (l *zapLogger) Warn(msg string, keyvals ...interface{})  { l.sugar.Warnw(msg, keyvals...) }
func (l *zapLogger) Error(msg string, keyvals ...interface{}) { l.sugar.Errorw(msg, keyvals...) }
