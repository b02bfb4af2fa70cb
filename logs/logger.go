package logs

import "log/slog"

// Logger 是纯计算包（grid、sim）依赖的最小日志接口，避免它们直接引 zap。
// 进程入口会把 DefaultLogger 替换成 zap 适配器。
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type slogLogger struct{}

func (slogLogger) Info(msg string, args ...any)  { slog.Info(msg, args...) }
func (slogLogger) Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func (slogLogger) Error(msg string, args ...any) { slog.Error(msg, args...) }

// DefaultLogger 默认落到 slog。
var DefaultLogger Logger = slogLogger{}

// Nop 丢弃所有日志，测试用。
type Nop struct{}

func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
