package core_test

import (
	"sync"
	"testing"

	"github.com/gocrud/nest/core"
)

// 多个托管服务失败时会并发调用 Shutdown，不允许重复关闭通道引发 panic
func TestShutdownConcurrent(t *testing.T) {
	rt := core.NewRuntime()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.Shutdown()
		}()
	}
	wg.Wait()

	select {
	case <-rt.Done():
	default:
		t.Fatal("Done channel should be closed after Shutdown")
	}

	// 已关闭后再调用也应当是无害的
	rt.Shutdown()
}

func TestRuntimeDefaults(t *testing.T) {
	rt := core.NewRuntime()
	if !rt.Settings.EnableValidation {
		t.Error("validation should be enabled by default")
	}
	if rt.Logger == nil {
		t.Error("runtime should carry a default logger")
	}
	if rt.ErrorHandler == nil {
		t.Error("runtime should carry a default error handler")
	}
}
