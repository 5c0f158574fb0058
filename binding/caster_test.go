package binding

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// Test: 数值转换
func TestCastNumber(t *testing.T) {
	val, err := Cast("42", Param{Name: "id", Kind: KindNumber}, false)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if val != float64(42) {
		t.Errorf("Expected 42, got %v", val)
	}

	// 宽松模式：无法解析返回 NaN，不报错
	val, err = Cast("abc", Param{Name: "id", Kind: KindNumber}, false)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if f, ok := val.(float64); !ok || !math.IsNaN(f) {
		t.Errorf("Expected NaN, got %v", val)
	}

	// 严格模式：报错并点名参数和原始值
	_, err = Cast("abc", Param{Name: "id", Kind: KindNumber}, true)
	if err == nil {
		t.Fatal("Expected strict cast to fail")
	}
	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("Expected CastError, got %T", err)
	}
	if castErr.Param != "id" {
		t.Errorf("Expected error to name parameter 'id', got %q", castErr.Param)
	}
	if !strings.Contains(err.Error(), "abc") {
		t.Errorf("Expected error to carry the raw value, got %q", err.Error())
	}

	// body 预类型化的数值直接通过
	val, _ = Cast(float64(7), Param{Name: "n", Kind: KindNumber}, true)
	if val != float64(7) {
		t.Errorf("Expected 7, got %v", val)
	}
}

// Test: 布尔转换没有错误路径
func TestCastBool(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		"1":     true,
		"yes":   false,
		"false": false,
		"TRUE":  false,
		"0":     false,
		"":      false,
	}

	for raw, want := range cases {
		for _, strict := range []bool{false, true} {
			val, err := Cast(raw, Param{Name: "flag", Kind: KindBool}, strict)
			if err != nil {
				t.Fatalf("Boolean cast must never fail, got %v", err)
			}
			if val != want {
				t.Errorf("Cast(%q) = %v, want %v", raw, val, want)
			}
		}
	}
}

// Test: 日期转换
func TestCastDate(t *testing.T) {
	val, err := Cast("2026-08-31T10:00:00Z", Param{Name: "at", Kind: KindDate}, true)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	ts, ok := val.(time.Time)
	if !ok || ts.Year() != 2026 {
		t.Errorf("Expected parsed time, got %v", val)
	}

	if _, err := Cast("not-a-date", Param{Name: "at", Kind: KindDate}, true); err == nil {
		t.Fatal("Expected strict cast of invalid date to fail")
	}

	// 宽松模式：无效日期原样透传
	val, err = Cast("not-a-date", Param{Name: "at", Kind: KindDate}, false)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if val != "not-a-date" {
		t.Errorf("Expected passthrough, got %v", val)
	}
}

// Test: 数组按元素类型逐个转换，错误点名具体下标
func TestCastArray(t *testing.T) {
	val, err := Cast([]string{"1", "2", "3"}, Param{Name: "ids", Kind: KindArray, Item: KindNumber}, true)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	nums := val.([]any)
	if len(nums) != 3 || nums[0] != float64(1) || nums[2] != float64(3) {
		t.Errorf("Unexpected array %v", nums)
	}

	_, err = Cast([]string{"1", "2", "x"}, Param{Name: "ids", Kind: KindArray, Item: KindNumber}, true)
	if err == nil {
		t.Fatal("Expected strict cast to fail on bad element")
	}
	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("Expected CastError, got %T", err)
	}
	if castErr.Param != "ids[2]" {
		t.Errorf("Expected error to identify index 2, got %q", castErr.Param)
	}

	// 未声明元素类型：原始数组直接透传
	raw := []string{"a", "b"}
	val, _ = Cast(raw, Param{Name: "tags", Kind: KindArray}, true)
	if got, ok := val.([]string); !ok || got[0] != "a" {
		t.Errorf("Expected passthrough of raw array, got %v", val)
	}
}

// Test: 枚举匹配
func TestCastEnum(t *testing.T) {
	p := Param{Name: "status", Kind: KindEnum, Enum: []any{"active", "closed"}}

	val, err := Cast("active", p, true)
	if err != nil || val != "active" {
		t.Fatalf("Expected enum match, got %v, %v", val, err)
	}

	// 大小写敏感
	if _, err := Cast("Active", p, true); err == nil {
		t.Fatal("Expected strict enum mismatch to fail")
	}

	// 宽松模式：不命中返回 nil
	val, err = Cast("unknown", p, false)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if val != nil {
		t.Errorf("Expected nil for lenient mismatch, got %v", val)
	}

	// 数值枚举：字面量或 Number 强转后匹配
	np := Param{Name: "level", Kind: KindEnum, Enum: []any{1, 2, 3}}
	val, err = Cast("2", np, true)
	if err != nil || val != 2 {
		t.Fatalf("Expected numeric enum match, got %v, %v", val, err)
	}
	val, err = Cast(float64(3), np, true)
	if err != nil || val != 3 {
		t.Fatalf("Expected numeric enum match for float, got %v, %v", val, err)
	}
}

// Test: 对象（默认目标）按 JSON 解析
func TestCastObject(t *testing.T) {
	val, err := Cast(`{"name":"go"}`, Param{Name: "filter", Kind: KindObject}, true)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	m, ok := val.(map[string]any)
	if !ok || m["name"] != "go" {
		t.Errorf("Expected parsed object, got %v", val)
	}

	if _, err := Cast("{broken", Param{Name: "filter", Kind: KindObject}, true); err == nil {
		t.Fatal("Expected strict parse failure")
	}

	val, err = Cast("{broken", Param{Name: "filter", Kind: KindObject}, false)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	if val != nil {
		t.Errorf("Expected nil for lenient parse failure, got %v", val)
	}

	// body 预类型化的值直接透传
	pre := map[string]any{"k": "v"}
	val, _ = Cast(pre, Param{Name: "b", Kind: KindObject}, true)
	if got, ok := val.(map[string]any); !ok || got["k"] != "v" {
		t.Errorf("Expected passthrough, got %v", val)
	}
}

// Test: 字符串恒等、缺失值原样返回
func TestCastIdentity(t *testing.T) {
	val, _ := Cast("hello", Param{Name: "s", Kind: KindString}, true)
	if val != "hello" {
		t.Errorf("Expected identity, got %v", val)
	}

	val, err := Cast(nil, Param{Name: "s", Kind: KindNumber}, true)
	if err != nil || val != nil {
		t.Errorf("Expected missing value to stay nil, got %v, %v", val, err)
	}
}
