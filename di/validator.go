package di

import (
	"fmt"
	"reflect"
)

// validator 启动期接线校验
//
// 在任何请求被服务之前走一遍注册表，把配置错误（未注册依赖、
// 循环依赖、无法识别的参数类型、延迟提供者消费方的可空性）
// 全部在 Build 时暴露出来。所有发现都是启动致命错误。
type validator struct {
	providers map[typeKey]*providerInfo
}

func newValidator(providers map[typeKey]*providerInfo) *validator {
	return &validator{providers: providers}
}

func (v *validator) validate() error {
	// 1. 逐提供者检查依赖点
	for key, info := range v.providers {
		for _, site := range dependencySites(info) {
			if site.unresolvable {
				return &UnresolvableDependencyError{Token: key.String(), Position: site.label}
			}

			target, ok := v.providers[site.key]
			if !ok {
				if site.optional {
					continue
				}
				return fmt.Errorf("di: 校验 %s 失败: %w", key, &UnknownTokenError{Token: site.key.String()})
			}

			// 延迟提供者在 settle 前注入 nil，消费方注入点必须可空
			// 或标记 Optional。不透明 Token 无法做静态检查，跳过。
			if target.deferred && !site.optional && site.key.name == "" && !nilable(site.typ) {
				return &NullabilityError{
					Token:    site.key.String(),
					Consumer: key.String(),
					Position: site.label,
				}
			}
		}
	}

	// 2. 循环依赖检测（DFS + 显式路径栈，输出完整依赖链）
	return v.detectCycles()
}

// dependencySites 返回提供者的所有依赖注入点（函数参数 + 结构体字段）
func dependencySites(info *providerInfo) []depSite {
	sites := make([]depSite, 0, len(info.deps)+len(info.fields))
	sites = append(sites, info.deps...)
	for _, field := range info.fields {
		sites = append(sites, field.depSite)
	}
	return sites
}

func (v *validator) detectCycles() error {
	visited := make(map[typeKey]bool)
	inStack := make(map[typeKey]bool)
	var path []typeKey

	var visit func(typeKey) error
	visit = func(u typeKey) error {
		visited[u] = true
		inStack[u] = true
		path = append(path, u)

		for _, site := range dependencySites(v.providers[u]) {
			target, exists := v.providers[site.key]
			if !exists {
				continue // 未注册的可选依赖，上面已处理非可选情况
			}

			// 指向延迟提供者的边在解析期不会递归构建
			// （注入的是句柄当前值），不构成实际循环
			if target.deferred {
				continue
			}

			if inStack[site.key] {
				return &CircularDependencyError{Chain: cycleChain(path, site.key)}
			}
			if !visited[site.key] {
				if err := visit(site.key); err != nil {
					return err
				}
			}
		}

		inStack[u] = false
		path = path[:len(path)-1]
		return nil
	}

	for key := range v.providers {
		if !visited[key] {
			if err := visit(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleChain 从路径栈中截取从 k 首次出现到回到 k 的完整链
func cycleChain(path []typeKey, k typeKey) []string {
	start := 0
	for i, key := range path {
		if key == k {
			start = i
			break
		}
	}

	chain := make([]string, 0, len(path)-start+1)
	for _, key := range path[start:] {
		chain = append(chain, key.String())
	}
	return append(chain, k.String())
}

// findCycles 静态标记所有能到达循环的 key
//
// 为每个提供者计算：沿依赖边（指向延迟提供者的边除外）是否可达
// 某个循环。可达则记下该循环的完整链。解析一个命中此表的 key
// 注定失败，因此解析器可以在拿任何共享条目锁之前就报错，
// 避免两个解析流从环的两端进入后在对方的锁上互相等待。
func findCycles(providers map[typeKey]*providerInfo) map[typeKey]*CircularDependencyError {
	result := make(map[typeKey]*CircularDependencyError)
	visited := make(map[typeKey]bool)
	inStack := make(map[typeKey]bool)
	var path []typeKey

	var visit func(typeKey)
	visit = func(u typeKey) {
		visited[u] = true
		inStack[u] = true
		path = append(path, u)

		for _, site := range dependencySites(providers[u]) {
			target, exists := providers[site.key]
			if !exists || target.deferred {
				continue
			}

			if inStack[site.key] {
				if result[u] == nil {
					result[u] = &CircularDependencyError{Chain: cycleChain(path, site.key)}
				}
				continue
			}
			if !visited[site.key] {
				visit(site.key)
			}
			if result[u] == nil && result[site.key] != nil {
				result[u] = result[site.key]
			}
		}

		inStack[u] = false
		path = path[:len(path)-1]
	}

	for key := range providers {
		if !visited[key] {
			visit(key)
		}
	}
	return result
}

// nilable 判断类型的零值是否为 nil（可以承载「尚未 settle」状态）
func nilable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
