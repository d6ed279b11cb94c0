package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 全局日志实例
// 默认输出到控制台 (info 级)，Init 后被替换
var log = newConsoleLogger(zapcore.InfoLevel)

// L 获取全局 SugaredLogger
func L() *zap.SugaredLogger {
	return log
}

// Init 初始化全局日志
// verbosity: 1=error, 2=info, 3=debug (与 CLI -v 参数一致)
// logFile: 日志文件路径，为空则只输出到控制台
func Init(verbosity int, logFile string) error {
	level := verbosityLevel(verbosity)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), level),
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder(), zapcore.Lock(f), level))
	}

	log = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

func verbosityLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case 1:
		return zapcore.ErrorLevel
	case 3:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newConsoleLogger(level zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stdout), level)
	return zap.New(core).Sugar()
}
