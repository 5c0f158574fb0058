package di_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gocrud/nest/di"
)

type ServiceA struct{ B *ServiceB }
type ServiceB struct{ C *ServiceC }
type ServiceC struct{ A *ServiceA }

func registerCycle(c *di.Container) {
	di.Provide(c, func(b *ServiceB) *ServiceA { return &ServiceA{B: b} })
	di.Provide(c, func(cc *ServiceC) *ServiceB { return &ServiceB{C: cc} })
	di.Provide(c, func(a *ServiceA) *ServiceC { return &ServiceC{A: a} })
}

// Test: 循环依赖在 Build 校验时被发现，错误携带完整依赖链
func TestCycleDetectedAtBuild(t *testing.T) {
	c := di.NewContainer()
	registerCycle(c)

	err := c.Build()
	if err == nil {
		t.Fatal("Expected Build to fail for cyclic graph")
	}

	var cyclic *di.CircularDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Expected CircularDependencyError, got %T: %v", err, err)
	}

	// 链首尾应为同一个 key，且包含环上所有节点
	if len(cyclic.Chain) < 2 {
		t.Fatalf("Expected a full chain, got %v", cyclic.Chain)
	}
	if cyclic.Chain[0] != cyclic.Chain[len(cyclic.Chain)-1] {
		t.Errorf("Expected chain to close on itself, got %v", cyclic.Chain)
	}

	msg := err.Error()
	if !strings.Contains(msg, "->") {
		t.Errorf("Expected chain diagnostics in message, got %q", msg)
	}
}

// Test: 关闭校验时，循环依赖在解析期由构建栈捕获（绝不挂起）
func TestCycleDetectedAtResolve(t *testing.T) {
	c := di.NewContainer()
	c.SetValidation(false)
	registerCycle(c)

	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := di.Resolve[*ServiceA](c)
		done <- err
	}()

	err := <-done
	if err == nil {
		t.Fatal("Expected resolution of cyclic graph to fail")
	}

	var cyclic *di.CircularDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Expected CircularDependencyError, got %T: %v", err, err)
	}
}

// Test: 关闭校验时，两个解析流从同一个环的两端并发进入，
// 双方都拿到 CircularDependencyError 而不是在对方的共享条目锁上挂起
func TestConcurrentCycleResolutionNeverHangs(t *testing.T) {
	type SvcA struct{}
	type SvcB struct{}
	type SvcC struct{}
	type SvcD struct{}

	c := di.NewContainer()
	c.SetValidation(false)

	// A -> C -> B 和 B -> D -> A，慢工厂拉开两个流的交错窗口
	di.Provide(c, func(cc *SvcC) *SvcA { return &SvcA{} })
	di.Provide(c, func(b *SvcB) *SvcC { time.Sleep(50 * time.Millisecond); return &SvcC{} })
	di.Provide(c, func(d *SvcD) *SvcB { return &SvcB{} })
	di.Provide(c, func(a *SvcA) *SvcD { time.Sleep(50 * time.Millisecond); return &SvcD{} })

	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() {
		_, err := di.Resolve[*SvcA](c)
		errA <- err
	}()
	go func() {
		_, err := di.Resolve[*SvcB](c)
		errB <- err
	}()

	for _, ch := range []chan error{errA, errB} {
		select {
		case err := <-ch:
			var cyclic *di.CircularDependencyError
			if !errors.As(err, &cyclic) {
				t.Fatalf("Expected CircularDependencyError, got %T: %v", err, err)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("Concurrent resolutions of a cyclic graph did not return")
		}
	}
}

// Test: 静态环检查只拒绝能到达环的 key，环外的服务照常解析
func TestCycleCheckSparesAcyclicKeys(t *testing.T) {
	type Standalone struct{ Ready bool }

	c := di.NewContainer()
	c.SetValidation(false)
	registerCycle(c)
	di.Provide(c, func() *Standalone { return &Standalone{Ready: true} })

	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, err := di.Resolve[*Standalone](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !got.Ready {
		t.Error("Expected the standalone service to be constructed")
	}

	if _, err := di.Resolve[*ServiceA](c); err == nil {
		t.Error("Expected resolution of the cyclic service to fail")
	}
}

// Test: 自环（服务依赖自身）同样报错
func TestSelfCycle(t *testing.T) {
	type Self struct{ Inner any }

	c := di.NewContainer()
	c.Provide(di.ProviderConfig{
		Provide:    di.TypeOf[*Self](),
		UseFactory: func(inner *Self) *Self { return &Self{Inner: inner} },
	})

	err := c.Build()
	if err == nil {
		t.Fatal("Expected Build to fail for self cycle")
	}

	var cyclic *di.CircularDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Expected CircularDependencyError, got %T: %v", err, err)
	}
	if len(cyclic.Chain) != 2 {
		t.Errorf("Expected self cycle chain of length 2, got %v", cyclic.Chain)
	}
}

// Test: 非共享作用域的循环同样失败（保守策略：
// 任何回到在建 key 的边都报错，绝不返回半构造对象）
func TestLocalCycleStillFails(t *testing.T) {
	c := di.NewContainer()

	di.Provide(c, func(b *ServiceB) *ServiceA { return &ServiceA{B: b} }, di.WithLocal())
	di.Provide(c, func(a *ServiceA) *ServiceB { return &ServiceB{} }, di.WithLocal())

	err := c.Build()
	if err == nil {
		t.Fatal("Expected Build to fail for cyclic graph under local scopes")
	}

	var cyclic *di.CircularDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("Expected CircularDependencyError, got %T: %v", err, err)
	}
}
