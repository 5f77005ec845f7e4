package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setLogger picks the zap logger for the given environment. When logFile is set
// the production logger writes to a rotating file instead of stderr.
func setLogger(env string, logFile ...string) (*zap.Logger, error) {
	switch env {
	case "development":
		return zap.NewDevelopment()
	case "local":
		return zap.NewExample(), nil
	}

	if len(logFile) > 0 && logFile[0] != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile[0],
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, zap.InfoLevel)
		return zap.New(core, zap.AddCaller()), nil
	}
	return zap.NewProduction()
}
