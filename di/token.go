package di

import (
	"fmt"
	"reflect"
)

// Token 表示一个依赖注入的令牌，用于区分相同类型的不同依赖
//
// 使用场景：
//   - 需要注册多个相同类型但用途不同的实例（如多个数据库连接）
//   - 配置值（如字符串、整数等基本类型）
//
// 示例：
//
//	// 定义 Token
//	var DbConnectionString = di.NewToken[string]("db-connection")
//
//	// 注册
//	container.Provide(di.ProviderConfig{
//		Provide:  DbConnectionString,
//		UseValue: "postgres://...",
//	})
//
//	// 获取
//	conn, _ := di.ResolveToken(container, DbConnectionString)
type Token[T any] struct {
	name string
	typ  reflect.Type
}

// NewToken 创建一个新的 Token
//
// 参数 name 用于标识此 Token，应该是唯一的描述性名称。
func NewToken[T any](name string) *Token[T] {
	return &Token[T]{
		name: name,
		typ:  reflect.TypeOf((*T)(nil)).Elem(),
	}
}

// Name 返回 Token 的名称
func (t *Token[T]) Name() string {
	return t.name
}

// Type 返回 Token 的类型
func (t *Token[T]) Type() reflect.Type {
	return t.typ
}

// String 返回 Token 的字符串表示
func (t *Token[T]) String() string {
	return fmt.Sprintf("Token[%s](%s)", t.typ, t.name)
}

// tokenInterface Token 的通用接口（用于类型判断）
type tokenInterface interface {
	Name() string
	Type() reflect.Type
	String() string
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeKey 是提供者注册表的唯一键。
// 一个 key 在任意时刻只对应一个提供者。
type typeKey struct {
	typ  reflect.Type
	name string
}

// String 返回用于诊断输出的键名（循环依赖链、错误消息等）
func (k typeKey) String() string {
	if k.name != "" {
		return fmt.Sprintf("%v(name=%s)", k.typ, k.name)
	}
	return fmt.Sprintf("%v", k.typ)
}

// keyOf 将 Provide 字段（reflect.Type、Token 或具体值）解析为 typeKey
func keyOf(provide any) (typeKey, error) {
	switch v := provide.(type) {
	case reflect.Type:
		return typeKey{typ: v}, nil
	case tokenInterface:
		return typeKey{typ: v.Type(), name: v.Name()}, nil
	default:
		// 尝试通过反射获取类型
		typ := reflect.TypeOf(v)
		if typ == nil {
			return typeKey{}, fmt.Errorf("di: cannot determine type from Provide field")
		}
		// *Interface 形式解包为接口类型
		if typ.Kind() == reflect.Ptr && typ.Elem().Kind() == reflect.Interface {
			return typeKey{typ: typ.Elem()}, nil
		}
		return typeKey{typ: typ}, nil
	}
}
