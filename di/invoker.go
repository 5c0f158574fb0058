package di

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoker 实例化调用器
// 封装了反射调用的细节，预先检查错误和返回值
type Invoker func(args []reflect.Value) (any, error)

// newInvoker 为工厂/构造函数创建调用器
// 约定：第一个返回值是实例，最后一个返回值如果是 error 则作为失败信号。
func newInvoker(fn any) Invoker {
	fnVal := reflect.ValueOf(fn)

	return func(args []reflect.Value) (any, error) {
		results := fnVal.Call(args)
		if len(results) == 0 {
			return nil, fmt.Errorf("di: 工厂/构造函数没有返回值")
		}

		// 检查 error
		if len(results) > 1 {
			last := results[len(results)-1]
			if last.Type().Implements(errorType) {
				if !last.IsNil() {
					return nil, fmt.Errorf("di: 工厂/构造函数执行失败: %w", last.Interface().(error))
				}
			}
		}

		// 检查 nil
		first := results[0]
		if first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface {
			if first.IsNil() {
				return nil, fmt.Errorf("di: 工厂/构造函数返回了 nil 实例")
			}
		}

		return first.Interface(), nil
	}
}

// argValue 将解析到的依赖转换为函数参数值
// 可选依赖未命中时 instance 为 nil，需要构造目标类型的零值。
func argValue(instance any, typ reflect.Type) reflect.Value {
	if instance == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(instance)
}
