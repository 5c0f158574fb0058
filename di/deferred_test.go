package di_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocrud/nest/di"
)

type RemoteConn struct {
	Addr string
}

// Test: 延迟工厂不阻塞 Build，settle 后句柄携带实例
func TestDeferredSettles(t *testing.T) {
	release := make(chan struct{})
	c := di.NewContainer()

	c.Provide(di.ProviderConfig{
		Provide: di.TypeOf[*RemoteConn](),
		UseFactory: func() *RemoteConn {
			<-release
			return &RemoteConn{Addr: "10.0.0.1:6379"}
		},
		Deferred: true,
	})

	start := time.Now()
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Expected Build to return without waiting for the deferred factory")
	}

	handle, ok := c.Handle(di.TypeOf[*RemoteConn]())
	if !ok {
		t.Fatal("Expected a deferred handle to exist")
	}
	if handle.Settled() {
		t.Error("Expected handle to be unsettled before the factory finishes")
	}
	if handle.Value() != nil {
		t.Error("Expected nil value before settlement")
	}

	close(release)
	waitSettled(t, handle)

	conn, ok := handle.Value().(*RemoteConn)
	if !ok || conn == nil {
		t.Fatalf("Expected settled value, got %v", handle.Value())
	}
	if conn.Addr != "10.0.0.1:6379" {
		t.Errorf("Unexpected addr %s", conn.Addr)
	}
}

// Test: settle 前注入的消费方拿到 nil；settle 后拿到实例
func TestDeferredConsumerSeesCurrentValue(t *testing.T) {
	release := make(chan struct{})
	c := di.NewContainer()

	c.Provide(di.ProviderConfig{
		Provide: di.TypeOf[*RemoteConn](),
		UseFactory: func() *RemoteConn {
			<-release
			return &RemoteConn{Addr: "cache"}
		},
		Deferred: true,
	})

	type CacheService struct {
		Conn *RemoteConn `di:""`
	}
	// 每次解析都重新读取句柄当前值
	di.Register[*CacheService](c, di.WithLocal())

	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	early, err := di.Resolve[*CacheService](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if early.Conn != nil {
		t.Error("Expected nil connection before settlement")
	}

	close(release)
	handle, _ := c.Handle(di.TypeOf[*RemoteConn]())
	waitSettled(t, handle)

	late, _ := di.Resolve[*CacheService](c)
	if late.Conn == nil {
		t.Error("Expected connection after settlement")
	}
}

// Test: 工厂失败时值永远保持 nil，错误只进 OnError 钩子
func TestDeferredFailureStaysNil(t *testing.T) {
	errCh := make(chan error, 1)
	c := di.NewContainer()

	c.Provide(di.ProviderConfig{
		Provide: di.TypeOf[*RemoteConn](),
		UseFactory: func() (*RemoteConn, error) {
			return nil, fmt.Errorf("dial timeout")
		},
		Deferred: true,
		OnError:  func(err error) { errCh <- err },
	})

	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	handle, _ := c.Handle(di.TypeOf[*RemoteConn]())

	select {
	case err := <-errCh:
		if err == nil || !strings.Contains(err.Error(), "dial timeout") {
			t.Fatalf("Expected factory error via hook, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected OnError hook to fire")
	}

	waitSettled(t, handle)
	if handle.Value() != nil {
		t.Error("Expected value to stay nil after failed settle")
	}
}

// Test: settle 之前所有并发读取都观察到 nil，值最多变化一次
func TestDeferredConcurrentReaders(t *testing.T) {
	release := make(chan struct{})
	c := di.NewContainer()

	c.Provide(di.ProviderConfig{
		Provide: di.TypeOf[*RemoteConn](),
		UseFactory: func() *RemoteConn {
			<-release
			return &RemoteConn{Addr: "settled"}
		},
		Deferred: true,
	})
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	handle, _ := c.Handle(di.TypeOf[*RemoteConn]())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !handle.Settled() && handle.Value() != nil {
				t.Error("Observed a value before settlement")
			}
		}()
	}
	wg.Wait()

	close(release)
	waitSettled(t, handle)

	first := handle.Value()
	for i := 0; i < 10; i++ {
		if handle.Value() != first {
			t.Fatal("Expected the settled value to never change again")
		}
	}
}

// Test: 消费 Deferred 提供者的注入点若不可为 nil，Build 失败
func TestDeferredNullabilityValidated(t *testing.T) {
	c := di.NewContainer()

	c.Provide(di.ProviderConfig{
		Provide:    di.TypeOf[RemoteConn](),
		UseFactory: func() RemoteConn { return RemoteConn{} },
		Deferred:   true,
	})
	// 参数类型是结构体值，settle 前无法表达「缺失」
	c.Provide(di.ProviderConfig{
		Provide:    di.TypeOf[*Config](),
		UseFactory: func(conn RemoteConn) *Config { return &Config{} },
	})

	err := c.Build()
	if err == nil {
		t.Fatal("Expected Build to fail for non-nilable deferred consumer")
	}

	var nullability *di.NullabilityError
	if !errors.As(err, &nullability) {
		t.Fatalf("Expected NullabilityError, got %T: %v", err, err)
	}
}

func waitSettled(t *testing.T, handle *di.DeferredHandle) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !handle.Settled() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for deferred settlement")
		}
		time.Sleep(time.Millisecond)
	}
}
