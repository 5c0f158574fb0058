package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncWriter 异步日志写入器
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	errHandler func(error)
}

// NewAsyncWriter 创建新的异步写入器
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
	}

	// 启动后台写入协程
	w.wg.Add(1)
	go w.process()

	return w
}

// WriteLog 写入日志条目
// 队列满时阻塞等待，保证不丢日志。
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.entryCh <- entry
}

// Close 关闭写入器
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.entryCh)
	})
	w.wg.Wait()
	return nil
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		data, err := w.formatter.Format(entry)
		if err != nil {
			if w.errHandler != nil {
				w.errHandler(err)
			} else {
				fmt.Fprintf(os.Stderr, "AsyncWriter format error: %v\n", err)
			}
			continue
		}

		_, err = w.writer.Write(data)
		if err != nil {
			if w.errHandler != nil {
				w.errHandler(err)
			} else {
				fmt.Fprintf(os.Stderr, "AsyncWriter write error: %v\n", err)
			}
		}

		// JsonFormatter 的输出不带换行
		if len(data) > 0 && data[len(data)-1] != '\n' {
			w.writer.Write([]byte{'\n'})
		}
	}
}

// SetErrorHandler 设置错误处理函数
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}
