package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"merge-service/pkg/config"
)

// Logger 基于logrus的日志服务
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalLogger *Logger
	globalOnce   sync.Once
)

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &Logger{entry: l}

	switch cfg.Log.Output {
	case "file":
		if cfg.Log.Filename != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Log.Filename), 0o755); err == nil {
				f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err == nil {
					logger.file = f
					l.SetOutput(io.MultiWriter(os.Stdout, f))
					return logger
				}
			}
		}
		l.SetOutput(os.Stdout)
	default:
		l.SetOutput(os.Stdout)
	}

	return logger
}

// SetGlobalLogger 设置全局日志服务
func SetGlobalLogger(l *Logger) {
	globalLogger = l
}

// Close 关闭日志文件句柄
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

func std() *logrus.Logger {
	if globalLogger != nil {
		return globalLogger.entry
	}
	// 未初始化时兜底到默认logrus，避免启动早期丢日志
	globalOnce.Do(func() {
		fallback := logrus.New()
		fallback.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		globalLogger = &Logger{entry: fallback}
	})
	return globalLogger.entry
}

func withFields(fields []map[string]interface{}) *logrus.Entry {
	entry := logrus.NewEntry(std())
	for _, m := range fields {
		entry = entry.WithFields(logrus.Fields(m))
	}
	return entry
}

// Debug 输出调试日志，可附带结构化字段
func Debug(msg string, fields ...map[string]interface{}) {
	withFields(fields).Debug(msg)
}

// Info 输出信息日志，可附带结构化字段
func Info(msg string, fields ...map[string]interface{}) {
	withFields(fields).Info(msg)
}

// Warn 输出警告日志，可附带结构化字段
func Warn(msg string, fields ...map[string]interface{}) {
	withFields(fields).Warn(msg)
}

// Error 输出错误日志，可附带结构化字段
func Error(msg string, fields ...map[string]interface{}) {
	withFields(fields).Error(msg)
}

// Fatal 输出致命错误日志并退出进程
func Fatal(msg string, fields ...map[string]interface{}) {
	withFields(fields).Fatal(msg)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	std().Debugf(format, args...)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	std().Infof(format, args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	std().Warnf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	std().Errorf(format, args...)
}
