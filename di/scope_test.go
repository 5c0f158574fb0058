package di_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/nest/di"
)

type Leaf struct {
	ID int64
}

type Mid struct {
	Leaf *Leaf
}

type Root struct {
	Mid  *Mid
	Leaf *Leaf
}

// newCountingContainer 注册 Leaf/Mid/Root 并用计数器跟踪 Leaf 的构造次数
func newCountingContainer(t *testing.T, counter *atomic.Int64, opts ...di.Option) *di.Container {
	t.Helper()
	c := di.NewContainer()

	err := di.Register[*Leaf](c, append([]di.Option{di.WithFactory(func() *Leaf {
		return &Leaf{ID: counter.Add(1)}
	})}, opts...)...)
	if err != nil {
		t.Fatalf("register Leaf: %v", err)
	}
	if _, err := di.Provide(c, func(leaf *Leaf) *Mid { return &Mid{Leaf: leaf} }); err != nil {
		t.Fatalf("register Mid: %v", err)
	}
	return c
}

// Test: Shared 作用域的重复解析返回同一个实例
func TestSharedIdempotent(t *testing.T) {
	var counter atomic.Int64
	c := newCountingContainer(t, &counter)
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	first, err := di.Resolve[*Leaf](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, _ := di.Resolve[*Leaf](c)

	if first != second {
		t.Error("Expected shared resolution to return the identical instance")
	}
	if counter.Load() != 1 {
		t.Errorf("Expected exactly 1 construction, got %d", counter.Load())
	}
}

// Test: Local 作用域在每次顶层解析中创建新实例，
// 同一解析上下文内复用
func TestLocalScope(t *testing.T) {
	var counter atomic.Int64
	c := newCountingContainer(t, &counter, di.WithLocal())
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	first, _ := di.Resolve[*Leaf](c)
	second, _ := di.Resolve[*Leaf](c)
	if first == second {
		t.Error("Expected local resolutions in separate contexts to differ")
	}

	// 同一上下文内复用
	rctx := c.NewContext()
	a, err := c.GetInContext(rctx, di.Dep{Provide: di.TypeOf[*Leaf]()})
	if err != nil {
		t.Fatalf("GetInContext failed: %v", err)
	}
	b, _ := c.GetInContext(rctx, di.Dep{Provide: di.TypeOf[*Leaf]()})
	if a != b {
		t.Error("Expected local resolutions in the same context to be reused")
	}
}

// Test: 注入点的作用域标记覆盖提供者默认值
func TestSiteScopeOverride(t *testing.T) {
	var counter atomic.Int64
	c := newCountingContainer(t, &counter)

	// Root 的 Leaf 注入点显式标记为 Local，Mid 的保持默认（Shared）
	_, err := di.Provide(c, func(mid *Mid, leaf *Leaf) *Root {
		return &Root{Mid: mid, Leaf: leaf}
	}, di.WithDeps(
		di.Dep{Provide: di.TypeOf[*Mid]()},
		di.Dep{Provide: di.TypeOf[*Leaf](), Scope: di.ScopeLocal},
	))
	if err != nil {
		t.Fatalf("register Root: %v", err)
	}
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	root, err := di.Resolve[*Root](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Mid 的 Leaf 走共享缓存；Root 的 Leaf 是上下文局部的新实例
	if root.Mid.Leaf == root.Leaf {
		t.Error("Expected site-local Leaf to differ from the shared one")
	}
	if counter.Load() != 2 {
		t.Errorf("Expected 2 constructions, got %d", counter.Load())
	}
}

// Test: DeepLocal 强制未标注的传递依赖也按 Local 解析
func TestDeepLocalPropagation(t *testing.T) {
	var counter atomic.Int64
	c := newCountingContainer(t, &counter)

	_, err := di.Provide(c, func(mid *Mid, leaf *Leaf) *Root {
		return &Root{Mid: mid, Leaf: leaf}
	}, di.WithDeps(
		di.Dep{Provide: di.TypeOf[*Mid](), Scope: di.ScopeDeepLocal},
		di.Dep{Provide: di.TypeOf[*Leaf]()},
	))
	if err != nil {
		t.Fatalf("register Root: %v", err)
	}
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	root, err := di.Resolve[*Root](c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Mid 子树内的 Leaf 被强制为 Local；Root 自己的 Leaf 注入点
	// 未标注，取提供者默认值（Shared），两者必须不同
	if root.Mid.Leaf == root.Leaf {
		t.Error("Expected deep-local subtree to get its own Leaf instance")
	}

	// 共享的 Leaf 已缓存：再次解析返回同一个
	shared, _ := di.Resolve[*Leaf](c)
	if shared != root.Leaf {
		t.Error("Expected the untagged Leaf to come from the shared cache")
	}
}

// Test: 同一 Shared key 的并发首次解析只构造一次实例
func TestConcurrentSharedConstruction(t *testing.T) {
	var counter atomic.Int64
	c := di.NewContainer()

	di.Register[*Leaf](c, di.WithFactory(func() *Leaf {
		time.Sleep(5 * time.Millisecond) // 放大竞争窗口
		return &Leaf{ID: counter.Add(1)}
	}))
	if err := c.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	const goroutines = 50
	results := make([]*Leaf, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			leaf, err := di.Resolve[*Leaf](c)
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			results[idx] = leaf
		}(i)
	}
	wg.Wait()

	if counter.Load() != 1 {
		t.Fatalf("Expected exactly 1 construction under concurrency, got %d", counter.Load())
	}
	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("Expected all goroutines to observe the identical instance")
		}
	}
}

// Test: 独立容器的共享缓存互不干扰
func TestIndependentContainers(t *testing.T) {
	var counter atomic.Int64

	c1 := newCountingContainer(t, &counter)
	c2 := newCountingContainer(t, &counter)
	c1.Build()
	c2.Build()

	a, _ := di.Resolve[*Leaf](c1)
	b, _ := di.Resolve[*Leaf](c2)

	if a == b {
		t.Error("Expected independent containers to hold independent singletons")
	}
	if counter.Load() != 2 {
		t.Errorf("Expected 2 constructions across containers, got %d", counter.Load())
	}
}
