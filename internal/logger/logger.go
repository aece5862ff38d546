package logger

import "go.uber.org/zap"

// New builds the process logger. Production gets sampled JSON output,
// everything else the development console encoder.
func New(environment string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
