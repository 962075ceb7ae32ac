package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はサービス共通のロガーを作る。
func New(serviceName string, development bool) (*zap.Logger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	return config.Build()
}

// NewTest はテスト用。
func NewTest() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}
