package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide logger: human-readable in development,
// JSON in production.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
