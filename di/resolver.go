package di

import (
	"fmt"
	"reflect"
)

// Context 解析上下文
//
// 一次顶层解析对应一个上下文：Local/DeepLocal 实例缓存在这里，
// 随上下文丢弃。上下文只在单个解析流程内使用，不跨并发流共享。
type Context struct {
	locals map[typeKey]any
}

// buildStack 当前正在构建的 key 的有序列表
// 只用于循环检测和错误诊断，仅在一次解析调用期间存在。
type buildStack struct {
	keys []typeKey
}

func (s *buildStack) contains(k typeKey) bool {
	for _, key := range s.keys {
		if key == k {
			return true
		}
	}
	return false
}

func (s *buildStack) push(k typeKey) {
	s.keys = append(s.keys, k)
}

func (s *buildStack) pop() {
	s.keys = s.keys[:len(s.keys)-1]
}

// chain 生成完整的循环依赖链（从 k 的首次出现到再次回到 k）
func (s *buildStack) chain(k typeKey) []string {
	start := 0
	for i, key := range s.keys {
		if key == k {
			start = i
			break
		}
	}

	chain := make([]string, 0, len(s.keys)-start+1)
	for _, key := range s.keys[start:] {
		chain = append(chain, key.String())
	}
	return append(chain, k.String())
}

// effectiveScope 计算一条注入边的实际作用域
//
// 注入点显式标记优先；未标记时，处于 DeepLocal 子树内则强制为
// Local（覆盖提供者默认值），否则取提供者默认值。
func effectiveScope(site, provider ScopeType, deep bool) ScopeType {
	if site != ScopeDefault {
		return site
	}
	if deep {
		return ScopeLocal
	}
	return provider
}

// resolveSite 解析一个依赖注入点
//
// 算法：
//  1. 共享作用域且已有完成的实例 → 直接返回，不重建。
//  2. key 仍在构建栈中（构建尚未完成）→ 循环依赖，携带完整链报错。
//     策略保守：任何回到在建 key 的边都失败，绝不返回半构造对象。
//  3. 否则压栈、递归解析所有声明依赖（DeepLocal 向未标记的子依赖
//     传播）、实例化、出栈。
//  4. 按实际作用域记忆化：Shared 进容器级缓存，Local/DeepLocal 进
//     当前上下文。
func (c *Container) resolveSite(rctx *Context, stack *buildStack, site depSite, deep bool) (any, error) {
	if site.unresolvable {
		return nil, &UnresolvableDependencyError{Token: site.key.String(), Position: site.label}
	}

	info, ok := c.lookup(site.key)
	if !ok {
		if site.optional {
			return nil, nil
		}
		return nil, &UnknownTokenError{Token: site.key.String()}
	}

	// 延迟提供者：注入句柄的【当前值】。settle 之前拿到的是 nil，
	// 消费方的可空性已在启动校验中确认。
	if info.deferred {
		return c.handles[site.key].Value(), nil
	}

	switch effectiveScope(site.scope, info.scope, deep) {
	case ScopeShared:
		entry := c.shared[site.key]
		if entry.done.Load() {
			return entry.val, entry.err
		}

		if stack.contains(site.key) {
			return nil, &CircularDependencyError{Chain: stack.chain(site.key)}
		}

		// 构建栈只能看到本解析流的回边。校验被关闭时，两个解析流
		// 可以从同一个环的两端进入，各自持有自己条目的锁再等对方的，
		// 永远不返回。因此拿锁之前先查静态环：命中的 key 注定解析
		// 失败，直接报错，不去碰任何条目锁。
		if !c.validation {
			if cyc := c.staticCycle(site.key); cyc != nil {
				return nil, cyc
			}
		}

		entry.mu.Lock()
		defer entry.mu.Unlock()
		// 双重检查：锁等待期间可能已被其他解析流构建完成
		if entry.done.Load() {
			return entry.val, entry.err
		}

		// 显式 Shared 标记使子树脱离 DeepLocal 覆盖
		val, err := c.construct(rctx, stack, info, false)
		entry.val, entry.err = val, err
		entry.done.Store(true)
		return val, err

	case ScopeLocal:
		return c.resolveLocal(rctx, stack, site, info, deep)

	case ScopeDeepLocal:
		return c.resolveLocal(rctx, stack, site, info, true)
	}

	return nil, fmt.Errorf("di: 未知作用域 %v", site.scope)
}

func (c *Container) resolveLocal(rctx *Context, stack *buildStack, site depSite, info *providerInfo, deep bool) (any, error) {
	if val, ok := rctx.locals[site.key]; ok {
		return val, nil
	}

	if stack.contains(site.key) {
		return nil, &CircularDependencyError{Chain: stack.chain(site.key)}
	}

	val, err := c.construct(rctx, stack, info, deep)
	if err != nil {
		return nil, err
	}
	rctx.locals[site.key] = val
	return val, nil
}

// construct 创建 info 描述的服务的新实例
// 调用方负责作用域记忆化；这里只负责构建和依赖递归。
func (c *Container) construct(rctx *Context, stack *buildStack, info *providerInfo, deep bool) (any, error) {
	if info.kind == ProviderTypeValue {
		return info.value, nil
	}

	stack.push(info.key)
	defer stack.pop()

	// 工厂或构造函数
	if info.invoke != nil {
		args := make([]reflect.Value, len(info.deps))
		for i, dep := range info.deps {
			val, err := c.resolveSite(rctx, stack, dep, deep)
			if err != nil {
				return nil, fmt.Errorf("di: 解析 %s 的%s失败: %w", info.key, dep.label, err)
			}
			args[i] = argValue(val, dep.typ)
		}
		return info.invoke(args)
	}

	// 结构体字段注入
	return c.constructStruct(rctx, stack, info, deep)
}

// constructStruct 实例化结构体并注入标记为 `di` 的字段
func (c *Container) constructStruct(rctx *Context, stack *buildStack, info *providerInfo, deep bool) (any, error) {
	implType := info.implType

	var val reflect.Value
	if implType.Kind() == reflect.Ptr {
		val = reflect.New(implType.Elem())
	} else {
		val = reflect.New(implType)
	}

	elem := val.Elem()

	// 用种子实例的字段值打底（注册时传入的已初始化指针）
	if info.seed != nil {
		seedVal := reflect.ValueOf(info.seed)
		if seedVal.Kind() == reflect.Ptr {
			seedVal = seedVal.Elem()
		}
		elem.Set(seedVal)
	}

	for _, field := range info.fields {
		dep, err := c.resolveSite(rctx, stack, field.depSite, deep)
		if err != nil {
			return nil, fmt.Errorf("di: 解析 %s 的%s失败: %w", info.key, field.label, err)
		}
		if dep != nil {
			elem.Field(field.index).Set(reflect.ValueOf(dep))
		}
	}

	if implType.Kind() == reflect.Ptr {
		return val.Interface(), nil
	}
	return val.Elem().Interface(), nil
}
