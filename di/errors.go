package di

import (
	"fmt"
	"strings"
)

// DuplicateTokenError 同一个 key 被重复注册
// 注册表是启动期追加、运行期只读的，重复注册属于配置错误。
type DuplicateTokenError struct {
	Token string
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("di: 服务 %s 已注册", e.Token)
}

// UnknownTokenError 请求了未注册的 key
type UnknownTokenError struct {
	Token string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("di: 未找到服务 %s", e.Token)
}

// CircularDependencyError 构建过程中检测到循环依赖
// Chain 包含完整的依赖链（首尾为同一个 key），用于诊断输出。
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("di: 检测到循环依赖: %s", strings.Join(e.Chain, " -> "))
}

// UnresolvableDependencyError 依赖点的类型无法识别
// 典型场景：工厂函数的参数声明为 any，无法推断出注册表 key。
// 该错误在启动校验阶段抛出，而不是等到请求期。
type UnresolvableDependencyError struct {
	Token    string // 所属提供者
	Position string // 依赖点描述（参数序号或字段名）
}

func (e *UnresolvableDependencyError) Error() string {
	return fmt.Sprintf("di: 服务 %s 的依赖 %s 类型无法识别", e.Token, e.Position)
}

// NullabilityError 延迟提供者的消费方注入点不可为 nil
// 延迟工厂在 settle 前注入的是 nil，消费方必须声明为可空类型或 Optional。
type NullabilityError struct {
	Token    string // 延迟提供者
	Consumer string // 消费方提供者
	Position string // 注入点描述
}

func (e *NullabilityError) Error() string {
	return fmt.Sprintf("di: 服务 %s 的注入点 %s 引用了延迟提供者 %s，但其类型不可为 nil 且未标记 Optional",
		e.Consumer, e.Position, e.Token)
}
