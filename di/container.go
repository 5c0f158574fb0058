package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Container 依赖注入容器
//
// 容器持有提供者注册表和共享实例缓存。注册表在 Build 前追加、
// Build 后只读；这一「运行期无写路径」本身就是一致性保证：
// 提供者在进程生命周期内不会改变形态。
//
// 共享缓存归容器所有（而非进程级全局状态），因此多个独立容器
// （例如测试中）可以互不干扰地共存。
type Container struct {
	mu         sync.RWMutex
	providers  map[typeKey]*providerInfo
	built      atomic.Bool
	validation bool

	// shared 共享实例缓存，Build 时按 key 分配条目，每个条目 write-once
	shared map[typeKey]*sharedEntry

	// handles 延迟提供者的句柄，Build 时创建并启动后台工厂
	handles map[typeKey]*DeferredHandle

	// cyclic 校验被关闭时的懒环检查结果：key -> 可达的循环
	// 注册表 Build 后不可变，整图只在首次用到时算一次
	cycleOnce sync.Once
	cyclic    map[typeKey]*CircularDependencyError
}

// sharedEntry 共享实例缓存条目
// done 的快速路径无锁；首次构建走 per-key 互斥的 check-then-insert，
// 保证并发的首次解析只构造一次实例。
type sharedEntry struct {
	mu   sync.Mutex
	done atomic.Bool
	val  any
	err  error
}

// NewContainer 创建一个新的空容器（启动校验默认开启）
func NewContainer() *Container {
	return &Container{
		providers:  make(map[typeKey]*providerInfo),
		validation: true,
	}
}

// SetValidation 开启或关闭 Build 时的接线校验
// 必须在 Build 之前调用。
func (c *Container) SetValidation(enabled bool) {
	c.validation = enabled
}

// Provide 注册一个提供者
// 同一个 key 重复注册返回 DuplicateTokenError；Build 后注册失败。
func (c *Container) Provide(pc ProviderConfig) error {
	if c.built.Load() {
		return fmt.Errorf("di: Build 后无法注册服务")
	}

	info, err := compile(pc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.providers[info.key]; exists {
		return &DuplicateTokenError{Token: info.key.String()}
	}

	c.providers[info.key] = info
	return nil
}

// Build 冻结注册表并进行启动校验
//
// 校验开启时会走一遍完整的接线检查（未注册依赖、循环依赖、
// 无法识别的参数类型、延迟提供者消费方的可空性），任何问题都是
// 启动致命错误，不会进入部分可用状态。
//
// 校验通过后启动所有延迟工厂的后台任务并使注册表只读。
// 共享实例按需懒构建，首次构建由 per-key 锁保证只发生一次。
func (c *Container) Build() error {
	if c.built.Load() {
		return nil // 已构建
	}

	c.mu.Lock()
	if c.built.Load() {
		c.mu.Unlock()
		return nil
	}

	if c.validation {
		if err := newValidator(c.providers).validate(); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	// 分配共享缓存条目和延迟句柄
	c.shared = make(map[typeKey]*sharedEntry, len(c.providers))
	c.handles = make(map[typeKey]*DeferredHandle)
	for key, info := range c.providers {
		c.shared[key] = &sharedEntry{}
		if info.deferred {
			c.handles[key] = newDeferredHandle(key, info.onError)
		}
	}

	// 标记为已构建。此后 Provide() 将失败，注册表实际上不可变，
	// 解析路径可以无锁读取 providers。
	c.built.Store(true)
	c.mu.Unlock()

	// 在锁外启动延迟工厂，避免后台解析与 Build 死锁
	c.launchDeferred()

	return nil
}

// Get 解析 key 对应的实例（顶层解析，创建新的解析上下文）
// provide 可以是 reflect.Type、Token 或具体值。
func (c *Container) Get(provide any) (any, error) {
	key, err := keyOf(provide)
	if err != nil {
		return nil, err
	}
	return c.getKey(key, ScopeDefault)
}

// GetNamed 解析指定类型和名称的实例
func (c *Container) GetNamed(typ reflect.Type, name string) (any, error) {
	return c.getKey(typeKey{typ: typ, name: name}, ScopeDefault)
}

func (c *Container) getKey(key typeKey, scope ScopeType) (any, error) {
	if !c.built.Load() {
		return nil, fmt.Errorf("di: 容器未构建")
	}

	rctx := c.NewContext()
	stack := &buildStack{}
	return c.resolveSite(rctx, stack, depSite{key: key, typ: key.typ, scope: scope, label: key.String()}, false)
}

// NewContext 创建一个新的解析上下文
//
// 上下文对应一次顶层解析（方法级注入时对应一个请求）：Local 实例
// 在同一上下文内复用，随上下文一起丢弃。上下文绝不跨并发请求共享，
// 因此不需要加锁。
func (c *Container) NewContext() *Context {
	return &Context{locals: make(map[typeKey]any)}
}

// GetInContext 在指定的解析上下文内解析一个依赖点
// 供请求管线的方法级注入使用：同一请求的所有注入点共享一个上下文。
func (c *Container) GetInContext(rctx *Context, dep Dep) (any, error) {
	if !c.built.Load() {
		return nil, fmt.Errorf("di: 容器未构建")
	}

	key, err := depKey(dep)
	if err != nil {
		return nil, err
	}

	stack := &buildStack{}
	site := depSite{key: key, typ: key.typ, scope: dep.Scope, optional: dep.Optional, label: key.String()}
	return c.resolveSite(rctx, stack, site, false)
}

// Handle 返回延迟提供者的句柄
// 非延迟 key 或未注册的 key 返回 false。
func (c *Container) Handle(provide any) (*DeferredHandle, bool) {
	if !c.built.Load() {
		return nil, false
	}
	key, err := keyOf(provide)
	if err != nil {
		return nil, false
	}
	h, ok := c.handles[key]
	return h, ok
}

// CheckDeps 校验一组依赖点的接线（供路由注册等启动期检查使用）
// 检查项与 Build 校验一致：未注册的非可选依赖、延迟提供者的可空性。
func (c *Container) CheckDeps(deps []Dep) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, dep := range deps {
		key, err := depKey(dep)
		if err != nil {
			return err
		}

		info, ok := c.providers[key]
		if !ok {
			if dep.Optional {
				continue
			}
			return &UnknownTokenError{Token: key.String()}
		}

		// 不透明 Token 无法做静态可空性检查，跳过
		if info.deferred && !dep.Optional && key.name == "" && !nilable(key.typ) {
			return &NullabilityError{Token: key.String(), Consumer: "路由处理器", Position: key.String()}
		}
	}
	return nil
}

// staticCycle 返回 key 沿静态依赖图可达的循环（无则为 nil）
// 校验开启时 Build 已拒绝了循环图，这条路径只在校验关闭时有意义。
func (c *Container) staticCycle(key typeKey) *CircularDependencyError {
	c.cycleOnce.Do(func() {
		c.cyclic = findCycles(c.providers)
	})
	return c.cyclic[key]
}

// lookup 返回 key 对应的提供者
func (c *Container) lookup(key typeKey) (*providerInfo, bool) {
	// Build 后注册表不可变，built 的内存屏障保证无锁读取安全
	if c.built.Load() {
		info, ok := c.providers[key]
		return info, ok
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.providers[key]
	return info, ok
}
