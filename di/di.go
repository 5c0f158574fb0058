package di

import (
	"fmt"
	"reflect"
)

// Provide 智能注册服务。
// 可以接受构造函数、结构体指针或类型，自动推断服务类型和注册方式。
//
// 支持的输入 target 类型:
//  1. func(...) (Service, error?) -> 注册为 Factory，key 为第一个返回值类型。
//  2. *Struct                     -> 注册为 Class，按 `di` 标签做字段注入。
//  3. reflect.Type                -> 注册为 Class（结构体字段注入）。
//
// 要按原样注册一个已初始化的实例，配合 WithValue 使用。
func Provide(c *Container, target any, opts ...Option) (reflect.Type, error) {
	targetVal := reflect.ValueOf(target)
	var pc ProviderConfig
	var serviceType reflect.Type

	if typeVal, ok := target.(reflect.Type); ok {
		serviceType = typeVal
		pc = ProviderConfig{Provide: serviceType, UseClass: serviceType}
	} else if targetVal.Kind() == reflect.Func {
		fnType := targetVal.Type()
		if fnType.NumOut() == 0 {
			return nil, fmt.Errorf("di: 构造函数必须至少有一个返回值")
		}
		serviceType = fnType.Out(0)
		pc = ProviderConfig{Provide: serviceType, UseFactory: target}
	} else if targetVal.Kind() == reflect.Ptr && targetVal.Elem().Kind() == reflect.Struct {
		serviceType = targetVal.Type()
		pc = ProviderConfig{Provide: serviceType, UseClass: target}
	} else if targetVal.Kind() == reflect.Ptr {
		serviceType = targetVal.Type()
		pc = ProviderConfig{Provide: serviceType, UseValue: target}
	} else {
		return nil, fmt.Errorf("di: 不支持的自动注册目标类型: %T", target)
	}

	for _, opt := range opts {
		opt(&pc)
	}

	if err := c.Provide(pc); err != nil {
		return nil, err
	}
	return serviceType, nil
}

// Register 以类型 T 为 key 注册服务
// T 为接口时必须配合 WithValue / WithFactory 指定实现。
func Register[T any](c *Container, opts ...Option) error {
	typ := TypeOf[T]()

	pc := ProviderConfig{Provide: typ, UseClass: typ}
	for _, opt := range opts {
		opt(&pc)
	}

	return c.Provide(pc)
}

// Bind 将接口 T 绑定到实现
// impl 可以是实例指针（值提供者）或构造函数（工厂提供者）。
//
// 使用示例: di.Bind[Logger](container, &ConsoleLogger{})
func Bind[T any](c *Container, impl any, opts ...Option) error {
	pc := ProviderConfig{Provide: TypeOf[T]()}

	if reflect.ValueOf(impl).Kind() == reflect.Func {
		pc.UseFactory = impl
	} else {
		pc.UseValue = impl
	}

	for _, opt := range opts {
		opt(&pc)
	}
	return c.Provide(pc)
}

// Resolve 从容器解析类型 T 的实例
func Resolve[T any](c *Container) (T, error) {
	return ResolveNamed[T](c, "")
}

// ResolveNamed 从容器解析指定名称的类型 T 实例
func ResolveNamed[T any](c *Container, name string) (T, error) {
	var zero T

	val, err := c.GetNamed(TypeOf[T](), name)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("di: 解析结果为 %T，期望 %v", val, TypeOf[T]())
}

// ResolveToken 按 Token 解析实例
// 延迟提供者在 settle 前返回零值。
func ResolveToken[T any](c *Container, token *Token[T]) (T, error) {
	var zero T

	val, err := c.Get(token)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("di: Token %s 解析结果为 %T，期望 %v", token, val, token.Type())
}

// Invoke 调用函数并注入其参数
// 函数的最后一个返回值如果是 error，将作为 Invoke 的结果返回。
func Invoke(c *Container, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("di: Invoke 需要函数，得到 %v", fnType)
	}

	args := make([]reflect.Value, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		argType := fnType.In(i)
		if argType.Kind() == reflect.Interface && argType.NumMethod() == 0 {
			return &UnresolvableDependencyError{Token: fnType.String(), Position: fmt.Sprintf("参数 %d", i)}
		}

		val, err := c.Get(argType)
		if err != nil {
			return fmt.Errorf("di: 参数 %d: %w", i, err)
		}
		args[i] = argValue(val, argType)
	}

	results := fnVal.Call(args)
	if len(results) > 0 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}
