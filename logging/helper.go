package logging

// NewLogger 创建默认的控制台 Logger
// Runtime 未显式配置日志时用它。
func NewLogger() Logger {
	builder := NewLoggingBuilder()
	builder.AddConsole()
	factory := builder.Build()
	return factory.CreateLogger("default")
}

// NewNopLogger 创建一个丢弃所有输出的 Logger
// 组件在未配置日志时用它兜底，省去调用点的 nil 判断。
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Trace(msg string, fields ...Field)           {}
func (nopLogger) Debug(msg string, fields ...Field)           {}
func (nopLogger) Info(msg string, fields ...Field)            {}
func (nopLogger) Warn(msg string, fields ...Field)            {}
func (nopLogger) Error(msg string, fields ...Field)           {}
func (nopLogger) Fatal(msg string, fields ...Field)           {}
func (nopLogger) Log(l LogLevel, msg string, fields ...Field) {}

func (n nopLogger) WithFields(fields ...Field) Logger   { return n }
func (n nopLogger) WithCategory(category string) Logger { return n }
