package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MLogger 是 zap.Logger 的封装类型，组件内部统一通过它输出日志。
type MLogger struct {
	*zap.Logger
}

// With 封装 zap.Logger 的 With 方法，并返回新的 MLogger 实例。
// 新实例携带额外的字段，不影响原 Logger。
func (l *MLogger) With(fields ...zap.Field) *MLogger {
	return &MLogger{Logger: l.Logger.With(fields...)}
}

// Named 返回一个追加了名称段的子 Logger。
func (l *MLogger) Named(name string) *MLogger {
	return &MLogger{Logger: l.Logger.Named(name)}
}

// DebugEnabled 判断当前 Logger 是否会输出 Debug 级别日志，
// 便于调用方在构造昂贵字段前提前短路。
func (l *MLogger) DebugEnabled() bool {
	return l.Core().Enabled(zapcore.DebugLevel)
}
