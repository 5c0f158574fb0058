package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 日志接口（类似于 .NET Core ILogger）
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
}

// LoggerProvider 日志提供者接口
type LoggerProvider interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	loggers := make([]Logger, 0, len(f.providers))
	for _, provider := range f.providers {
		loggers = append(loggers, provider.CreateLogger(category))
	}

	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: f.minimumLevel,
		category:     category,
	}
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(f.minimumLevel)
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimumLevel = level
	for _, provider := range f.providers {
		provider.SetMinimumLevel(level)
	}
}

// compositeLogger 组合日志记录器（将日志发送到多个提供者）
type compositeLogger struct {
	loggers      []Logger
	minimumLevel LogLevel
	category     string
	fields       []Field
}

// NewCompositeLogger 创建组合日志记录器（用于外部包构建）
func NewCompositeLogger(loggers []Logger, minimumLevel LogLevel, category string) Logger {
	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: minimumLevel,
		category:     category,
		fields:       make([]Field, 0),
	}
}

func (l *compositeLogger) Trace(msg string, fields ...Field) {
	l.Log(LogLevelTrace, msg, fields...)
}

func (l *compositeLogger) Debug(msg string, fields ...Field) {
	l.Log(LogLevelDebug, msg, fields...)
}

func (l *compositeLogger) Info(msg string, fields ...Field) {
	l.Log(LogLevelInfo, msg, fields...)
}

func (l *compositeLogger) Warn(msg string, fields ...Field) {
	l.Log(LogLevelWarn, msg, fields...)
}

func (l *compositeLogger) Error(msg string, fields ...Field) {
	l.Log(LogLevelError, msg, fields...)
}

func (l *compositeLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}

	// 合并字段
	allFields := append(l.fields, fields...)

	for _, logger := range l.loggers {
		logger.Log(level, msg, allFields...)
	}
}

func (l *compositeLogger) WithFields(fields ...Field) Logger {
	return &compositeLogger{
		loggers:      l.loggers,
		minimumLevel: l.minimumLevel,
		category:     l.category,
		fields:       append(l.fields, fields...),
	}
}

func (l *compositeLogger) WithCategory(category string) Logger {
	return &compositeLogger{
		loggers:      l.loggers,
		minimumLevel: l.minimumLevel,
		category:     category,
		fields:       l.fields,
	}
}

// sink 接收组装好的日志条目并负责写出
// AsyncWriter 也实现了这个接口。
type sink interface {
	WriteLog(entry *LogEntry)
}

// syncSink 同步写出：格式化后立即写入底层 Writer
type syncSink struct {
	writer    io.Writer
	formatter Formatter
	mu        sync.Mutex
}

func (s *syncSink) WriteLog(entry *LogEntry) {
	data, err := s.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Write(data)
	// JsonFormatter 的输出不带换行
	if len(data) > 0 && data[len(data)-1] != '\n' {
		s.writer.Write([]byte{'\n'})
	}
}

// sinkLogger 把一次日志调用组装成 LogEntry 交给 sink
// 控制台和文件 Logger 都是它，差别只在背后的 sink 和 Formatter。
type sinkLogger struct {
	category     string
	minimumLevel LogLevel
	fields       []Field
	out          sink
}

func (l *sinkLogger) Trace(msg string, fields ...Field) {
	l.Log(LogLevelTrace, msg, fields...)
}

func (l *sinkLogger) Debug(msg string, fields ...Field) {
	l.Log(LogLevelDebug, msg, fields...)
}

func (l *sinkLogger) Info(msg string, fields ...Field) {
	l.Log(LogLevelInfo, msg, fields...)
}

func (l *sinkLogger) Warn(msg string, fields ...Field) {
	l.Log(LogLevelWarn, msg, fields...)
}

func (l *sinkLogger) Error(msg string, fields ...Field) {
	l.Log(LogLevelError, msg, fields...)
}

func (l *sinkLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *sinkLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}

	entry := &LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
	}
	if len(l.fields) > 0 {
		// 条目可能被异步消费，不能让它引用共享的底层数组
		merged := make([]Field, 0, len(l.fields)+len(fields))
		merged = append(merged, l.fields...)
		merged = append(merged, fields...)
		entry.Fields = merged
	} else {
		entry.Fields = fields
	}

	l.out.WriteLog(entry)
}

func (l *sinkLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &sinkLogger{
		category:     l.category,
		minimumLevel: l.minimumLevel,
		fields:       merged,
		out:          l.out,
	}
}

func (l *sinkLogger) WithCategory(category string) Logger {
	return &sinkLogger{
		category:     category,
		minimumLevel: l.minimumLevel,
		fields:       l.fields,
		out:          l.out,
	}
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者
// 同一个 Provider 下的所有 Logger 共享一个同步 sink，保证行不交叠。
type ConsoleLoggerProvider struct {
	out          *syncSink
	minimumLevel LogLevel
	mu           sync.RWMutex
}

func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	formatter := &TextFormatter{
		IncludeTimestamp: options.IncludeTimestamp,
		TimestampFormat:  options.TimestampFormat,
		ColorOutput:      options.ColorOutput,
	}
	return &ConsoleLoggerProvider{
		out:          &syncSink{writer: options.Output, formatter: formatter},
		minimumLevel: LogLevelInfo,
	}
}

func (p *ConsoleLoggerProvider) CreateLogger(category string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &sinkLogger{
		category:     category,
		minimumLevel: p.minimumLevel,
		out:          p.out,
	}
}

func (p *ConsoleLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string

	// Json 以 JSON 行输出，默认纯文本
	Json bool

	// BufferSize 异步队列长度，<=0 时取 1024
	BufferSize int
}

// FileLoggerProvider 文件日志提供者
// 写入走 AsyncWriter，调用方不被磁盘 IO 阻塞；Close 冲刷队列后关文件。
type FileLoggerProvider struct {
	options      FileLoggerOptions
	minimumLevel LogLevel
	file         *os.File
	writer       *AsyncWriter
	mu           sync.RWMutex
}

func NewFileLoggerProvider(options FileLoggerOptions) *FileLoggerProvider {
	if options.BufferSize <= 0 {
		options.BufferSize = 1024
	}
	return &FileLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
	}
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		file, err := os.OpenFile(p.options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// 打不开文件就退化到 stderr，至少不丢日志
			fmt.Fprintf(os.Stderr, "logging: failed to open log file: %v\n", err)
			return &sinkLogger{
				category:     category,
				minimumLevel: p.minimumLevel,
				out:          &syncSink{writer: os.Stderr, formatter: NewTextFormatter()},
			}
		}
		p.file = file

		var formatter Formatter = NewTextFormatter()
		if p.options.Json {
			formatter = NewJsonFormatter()
		}
		p.writer = NewAsyncWriter(file, formatter, p.options.BufferSize)
	}

	return &sinkLogger{
		category:     category,
		minimumLevel: p.minimumLevel,
		out:          p.writer,
	}
}

func (p *FileLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

// Close 冲刷异步队列并关闭日志文件
func (p *FileLoggerProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer != nil {
		p.writer.Close()
		p.writer = nil
	}
	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
