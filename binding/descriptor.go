// Package binding 实现路由参数的提取、类型转换和管道执行。
//
// 每个路由处理器在启动时携带一张显式的参数描述表（参数序号 ->
// 来源/目标类型），请求期按表提取原始值、转换为声明类型、再依次
// 执行管道链。描述表一经构建不再变化。
package binding

import (
	"fmt"
	"sort"
)

// Source 参数的提取来源
type Source int

const (
	// SourcePath 路径段参数
	SourcePath Source = iota
	// SourceQuery 查询字符串参数（单值或多值）
	SourceQuery
	// SourceHeader 请求头（大小写不敏感）
	SourceHeader
	// SourceBody 请求体（惰性 JSON，每请求只解析一次）
	SourceBody
)

// String 返回来源的字符串表示
func (s Source) String() string {
	switch s {
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceHeader:
		return "header"
	case SourceBody:
		return "body"
	default:
		return "unknown"
	}
}

// Kind 参数的目标类型标签
// 运行时没有可依赖的类型元数据，目标类型由描述表显式给出。
type Kind int

const (
	// KindNone 未声明，按 Object 规则处理
	KindNone Kind = iota
	// KindString 字符串，恒等转换
	KindString
	// KindNumber 数值（float64）
	KindNumber
	// KindBool 布尔："true" 和 "1" 为 true，其余一律 false
	KindBool
	// KindDate 日期（time.Time）
	KindDate
	// KindObject 对象，原始字符串按 JSON 解析
	KindObject
	// KindArray 数组，按 Item 声明的元素类型逐个转换
	KindArray
	// KindEnum 枚举，原始值必须命中 Enum 白名单
	KindEnum
)

// String 返回类型标签的字符串表示
func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	case KindEnum:
		return "Enum"
	default:
		return "Object"
	}
}

// Param 路由参数描述符
//
// 启动时构建一次，之后只读；每个匹配请求都按它提取和转换参数。
type Param struct {
	// Index 参数在处理器参数列表中的位置
	// 同一处理器内所有 Index（包括方法级注入点的）必须唯一且连续。
	Index int

	// Source 提取来源
	Source Source

	// Name 来源内的名称（路径段名、查询键、头名或 body 字段名）
	// Source 为 Body 且 Name 为空时绑定整个请求体。
	Name string

	// Kind 目标类型
	Kind Kind

	// Item Array 的元素类型；KindNone 表示原始数组直接透传
	Item Kind

	// Enum 枚举白名单（标量值，字符串或数值）
	Enum []any
}

// ValidateIndexes 校验一个处理器的参数序号唯一且从 0 连续
// indexes 包含绑定参数和方法级注入点两类序号的并集。
func ValidateIndexes(indexes []int) error {
	sorted := make([]int, len(indexes))
	copy(sorted, indexes)
	sort.Ints(sorted)

	for i, idx := range sorted {
		if idx != i {
			if i > 0 && idx == sorted[i-1] {
				return fmt.Errorf("binding: 参数序号 %d 重复", idx)
			}
			return fmt.Errorf("binding: 参数序号不连续，缺少 %d", i)
		}
	}
	return nil
}
