package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// 构建器 -> 工厂 -> 控制台 sink 的完整链路
func TestConsolePipeline(t *testing.T) {
	var buf bytes.Buffer

	factory := NewLoggingBuilder().
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()
	logger := factory.CreateLogger("Startup")

	logger.Info("Server ready", Field{Key: "port", Value: 8080})

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("Expected level in output, got: %s", out)
	}
	if !strings.Contains(out, "[Startup]") {
		t.Errorf("Expected category in output, got: %s", out)
	}
	if !strings.Contains(out, "port=8080") {
		t.Errorf("Expected field in output, got: %s", out)
	}
}

func TestMinimumLevelFilters(t *testing.T) {
	var buf bytes.Buffer

	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelWarn).
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()
	logger := factory.CreateLogger("")

	logger.Debug("noise")
	logger.Info("noise")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("Expected low levels to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("Expected WARN to pass, got: %s", out)
	}
}

func TestWithFieldsAndCategory(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLoggingBuilder().
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build().
		CreateLogger("Base")

	scoped := logger.WithFields(Field{Key: "request_id", Value: "abc"}).
		WithCategory("Handler")
	scoped.Info("handled")

	out := buf.String()
	if !strings.Contains(out, "request_id=abc") {
		t.Errorf("Expected scoped field, got: %s", out)
	}
	if !strings.Contains(out, "[Handler]") {
		t.Errorf("Expected overridden category, got: %s", out)
	}

	// 派生不影响原 Logger
	buf.Reset()
	logger.Info("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("Expected original logger without scoped fields, got: %s", buf.String())
	}
}

// 每个提供者都应收到同一条日志
func TestCompositeFanOut(t *testing.T) {
	var a, b bytes.Buffer

	factory := NewLoggingBuilder().
		AddConsole(ConsoleLoggerOptions{Output: &a}).
		AddConsole(ConsoleLoggerOptions{Output: &b}).
		Build()
	factory.CreateLogger("").Info("broadcast")

	if !strings.Contains(a.String(), "broadcast") || !strings.Contains(b.String(), "broadcast") {
		t.Errorf("Expected both providers to receive the entry, got %q / %q", a.String(), b.String())
	}
}

// 文件提供者异步写 JSON 行，Close 负责冲刷
func TestFileProviderJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	provider := NewFileLoggerProvider(FileLoggerOptions{Path: path, Json: true})
	logger := provider.CreateLogger("Jobs")
	logger.Info("tick", Field{Key: "count", Value: 3})

	if err := provider.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var record map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", line, err)
	}
	if record["msg"] != "tick" || record["category"] != "Jobs" {
		t.Errorf("Unexpected record: %v", record)
	}
	fields, ok := record["fields"].(map[string]any)
	if !ok || fields["count"] != float64(3) {
		t.Errorf("Unexpected fields: %v", record["fields"])
	}
}

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	str := string(out)
	for _, want := range []string{"INFO", "[Test]", "Hello", "key=val"} {
		if !strings.Contains(str, want) {
			t.Errorf("Expected %q in output: %s", want, str)
		}
	}
	if !strings.HasSuffix(str, "\n") {
		t.Error("Expected trailing newline")
	}
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelError,
		Category: "Test",
		Message:  "Boom",
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var data map[string]any
	if err := json.Unmarshal(out, &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if data["level"] != "ERROR" || data["msg"] != "Boom" {
		t.Errorf("Unexpected record: %v", data)
	}
}

// syncWriter 线程安全地记录写入内容，供异步写入器断言
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// Close 之后队列里的所有条目必须已经写出
func TestAsyncWriterFlushOnClose(t *testing.T) {
	w := &syncWriter{}
	writer := NewAsyncWriter(w, NewTextFormatter(), 64)

	logger := &sinkLogger{category: "Async", out: writer}
	for i := 0; i < 50; i++ {
		logger.Info("entry", Field{Key: "n", Value: i})
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := strings.Count(w.String(), "\n")
	if lines != 50 {
		t.Errorf("Expected 50 lines after Close, got %d", lines)
	}
}

func BenchmarkAsyncLogging(b *testing.B) {
	// io.Discard 避免 I/O 瓶颈，测的是 AsyncWriter 自身的开销
	writer := NewAsyncWriter(io.Discard, NewTextFormatter(), 10000)
	defer writer.Close()

	logger := &sinkLogger{out: writer}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark entry", Field{Key: "n", Value: i})
	}
}
