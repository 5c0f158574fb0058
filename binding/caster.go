package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// dateLayouts 日期解析依次尝试的标准布局
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
}

// Cast 将提取到的原始值转换为描述符声明的目标类型
//
// strict 控制失败语义：严格模式下转换失败抛出点名参数和原始值的
// CastError；宽松模式下吞掉错误并返回哨兵值（NaN、nil 或原始值
// 透传），交给用户代码处理。缺失的原始值（nil）原样返回。
func Cast(raw any, p Param, strict bool) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch p.Kind {
	case KindString:
		// 恒等
		return raw, nil

	case KindNumber:
		return castNumber(raw, p.Name, strict)

	case KindBool:
		// 只有 "true" 和 "1" 为 true，其余一律 false；
		// 布尔转换不存在错误路径，与模式无关。
		return castBool(raw), nil

	case KindDate:
		return castDate(raw, p.Name, strict)

	case KindArray:
		return castArray(raw, p, strict)

	case KindEnum:
		return castEnum(raw, p, strict)

	default:
		// Object（含未声明类型）：原始字符串按 JSON 解析
		return castObject(raw, p.Name, strict)
	}
}

func castNumber(raw any, param string, strict bool) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}

	if strict {
		return nil, &CastError{Param: param, Raw: raw, Target: "Number"}
	}
	return math.NaN(), nil
}

func castBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

func castDate(raw any, param string, strict bool) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
	}

	if strict {
		return nil, &CastError{Param: param, Raw: raw, Target: "Date"}
	}
	// 宽松模式：无效日期原样透传
	return raw, nil
}

func castArray(raw any, p Param, strict bool) (any, error) {
	elems := toSlice(raw)

	// 未声明元素类型：原始数组直接透传
	if p.Item == KindNone {
		return raw, nil
	}

	itemParam := Param{Kind: p.Item, Enum: p.Enum}
	out := make([]any, len(elems))
	for i, elem := range elems {
		// 逐元素转换，错误点名具体下标
		itemParam.Name = fmt.Sprintf("%s[%d]", p.Name, i)
		val, err := Cast(elem, itemParam, strict)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// toSlice 将原始值归一化为元素切片
// 单个标量按单元素数组处理（查询参数只出现一次的情况）。
func toSlice(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{raw}
}

func castEnum(raw any, p Param, strict bool) (any, error) {
	for _, allowed := range p.Enum {
		switch want := allowed.(type) {
		case string:
			// 字符串枚举：大小写敏感的精确匹配
			if s, ok := raw.(string); ok && s == want {
				return want, nil
			}
		default:
			// 数值枚举：匹配数值字面量，或 Number 强转后比较
			if numericEqual(raw, allowed) {
				return allowed, nil
			}
		}
	}

	if strict {
		return nil, &CastError{Param: p.Name, Raw: raw, Target: "Enum"}
	}
	return nil, nil
}

// numericEqual 判断原始值是否等于数值枚举项
func numericEqual(raw, allowed any) bool {
	want, ok := toFloat(allowed)
	if !ok {
		return false
	}

	if got, ok := toFloat(raw); ok {
		return got == want
	}
	if s, ok := raw.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f == want
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func castObject(raw any, param string, strict bool) (any, error) {
	s, ok := raw.(string)
	if !ok {
		// body 来源的值已经是 JSON 解析后的类型，直接透传
		return raw, nil
	}

	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		if strict {
			return nil, &CastError{Param: param, Raw: raw, Target: "Object"}
		}
		return nil, nil
	}
	return out, nil
}
