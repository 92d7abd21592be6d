// Package logger 提供基于zap的结构化日志
//
// 设计说明：
// 1. 统一所有组件的日志输出格式（JSON，便于采集）
// 2. 通过Named区分组件（cart-service、lifecycle、notify等）
// 3. 日志级别由配置控制，生产环境建议info
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建结构化日志器
//
// 参数：
//
//	serviceName: 服务名称，附加到每条日志的service字段
//	logLevel: 日志级别（debug/info/warn/error）
func New(serviceName, logLevel string) *zap.Logger {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	l, err := config.Build(zap.AddCaller())
	if err != nil {
		// 日志器构建失败无法继续运行，直接使用无配置的兜底日志器
		return zap.NewNop()
	}

	return l
}
