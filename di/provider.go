package di

import (
	"fmt"
	"reflect"
	"strings"
)

// ProviderType 提供者类型，定义如何提供实例
type ProviderType int

const (
	// ProviderTypeClass 类提供者，使用构造函数或结构体指针创建实例
	ProviderTypeClass ProviderType = iota
	// ProviderTypeValue 值提供者，直接使用静态值
	ProviderTypeValue
	// ProviderTypeFactory 工厂提供者，使用工厂函数创建实例
	ProviderTypeFactory
)

// ScopeType 作用域类型，定义实例的复用策略
//
// 作用域标记附着在注入点（构造函数参数、结构体字段、路由注入点）上，
// 提供者本身只携带一个默认作用域。
type ScopeType int

const (
	// ScopeDefault 注入点未显式声明作用域
	// 实际作用域取提供者默认值；在 DeepLocal 子树内被强制为 Local。
	ScopeDefault ScopeType = iota

	// ScopeShared 共享作用域（提供者默认）
	// 在整个容器生命周期内只创建一次实例，所有获取操作返回同一个实例。
	// 首次构建由 per-key 锁保证只发生一次，构建完成后可被并发读取。
	ScopeShared

	// ScopeLocal 局部作用域
	// 在同一个解析上下文（通常对应一次顶层解析或一个 HTTP 请求）内
	// 只创建一次实例，上下文丢弃后实例随之丢弃。
	ScopeLocal

	// ScopeDeepLocal 深局部作用域
	// 等同于 Local，并且强制该子树下所有【未显式标注作用域】的
	// 传递依赖也按 Local 解析（覆盖它们的提供者默认值）。
	ScopeDeepLocal
)

// String 返回作用域的字符串表示
func (s ScopeType) String() string {
	switch s {
	case ScopeShared:
		return "shared"
	case ScopeLocal:
		return "local"
	case ScopeDeepLocal:
		return "deeplocal"
	default:
		return "default"
	}
}

// Dep 描述一个显式声明的依赖注入点
//
// 工厂/构造函数的参数默认按类型推断；需要 Token 注入、
// 注入点级作用域或可选依赖时，通过 Deps 显式给出。
type Dep struct {
	// Provide 依赖的 key，可以是 reflect.Type 或 Token
	Provide any

	// Name 按名解析（可选，Provide 为 Token 时忽略）
	Name string

	// Scope 注入点作用域标记（ScopeDefault 表示沿用提供者默认）
	Scope ScopeType

	// Optional 是否可选，找不到依赖时注入 nil 而不报错
	Optional bool
}

// ProviderConfig 提供者配置
//
// Provide 为必填；UseValue / UseFactory / UseClass 三者必须且只能设置一个。
//
// 示例：
//
//	// 值提供者
//	container.Provide(di.ProviderConfig{
//		Provide:  di.TypeOf[*Config](),
//		UseValue: &Config{Port: 8080},
//	})
//
//	// 工厂提供者（参数自动注入）
//	container.Provide(di.ProviderConfig{
//		Provide:    di.TypeOf[*Database](),
//		UseFactory: func(cfg *Config) (*Database, error) { ... },
//	})
type ProviderConfig struct {
	// Provide 提供的 key，可以是 reflect.Type、Token 或具体值
	Provide any

	// Name 注册名（可选）
	// 同一类型可以用不同名字注册多次，通过 GetNamed / Dep 按名解析。
	// Provide 为 Token 时不允许再设置 Name（Token 自带名字）。
	Name string

	// UseValue 使用静态值（不会创建新实例）
	UseValue any

	// UseFactory 使用工厂函数创建实例
	// 返回值的第一个参数是实例，可选的最后一个参数是 error
	UseFactory any

	// UseClass 使用构造函数或结构体指针
	// 构造函数的参数将自动注入；结构体指针按 `di` 标签做字段注入
	UseClass any

	// Deps 显式指定的依赖列表（可选）
	// 不指定时根据函数签名自动推断；指定时按参数位置逐个覆盖
	Deps []Dep

	// Scope 提供者默认作用域，零值等同于 ScopeShared
	Scope ScopeType

	// Deferred 延迟初始化标记（仅对 UseFactory 有效）
	// 工厂在后台任务中执行，注册立即返回；消费方在 settle 前注入到 nil
	Deferred bool

	// OnError 延迟工厂失败时的错误回调（可选）
	// 框架不做重试，失败只通过此钩子上报，句柄的值保持为 nil
	OnError func(error)
}

// Validate 验证配置的有效性
func (pc *ProviderConfig) Validate() error {
	if pc.Provide == nil {
		return fmt.Errorf("di: Provide field is required")
	}

	setCount := 0
	if pc.UseValue != nil {
		setCount++
	}
	if pc.UseFactory != nil {
		setCount++
	}
	if pc.UseClass != nil {
		setCount++
	}

	if setCount == 0 {
		return fmt.Errorf("di: must set one of: UseValue, UseFactory, UseClass")
	}
	if setCount > 1 {
		return fmt.Errorf("di: can only set one of: UseValue, UseFactory, UseClass")
	}

	if pc.Deferred && pc.UseFactory == nil {
		return fmt.Errorf("di: Deferred requires UseFactory")
	}

	return nil
}

// depSite 编译后的依赖注入点（内部表示）
type depSite struct {
	key          typeKey
	typ          reflect.Type // 注入点声明的类型（用于可空性检查）
	scope        ScopeType
	optional     bool
	label        string // 诊断用：参数序号或字段名
	unresolvable bool   // 类型无法识别（any 参数等），由启动校验报告
}

// fieldSite 结构体字段注入点
type fieldSite struct {
	depSite
	index int // 字段索引
}

// providerInfo 提供者的编译形态（注册时生成，Build 后不可变）
type providerInfo struct {
	key      typeKey
	kind     ProviderType
	value    any // 静态值 / 工厂函数 / 构造函数
	scope    ScopeType
	deferred bool
	onError  func(error)

	deps     []depSite   // 函数参数注入点
	fields   []fieldSite // 结构体字段注入点
	implType reflect.Type
	seed     any // UseClass 传入的已初始化实例（字段值打底）

	invoke Invoker // 预编译的函数调用器
}

// compile 将 ProviderConfig 编译为内部形态
// 依赖点在这里一次性分析完成，解析期零反射扫描。
func compile(pc ProviderConfig) (*providerInfo, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	key, err := keyOf(pc.Provide)
	if err != nil {
		return nil, err
	}
	if pc.Name != "" {
		if key.name != "" {
			return nil, fmt.Errorf("di: Token %s 自带名字，不能再设置 Name", key)
		}
		key.name = pc.Name
	}

	scope := pc.Scope
	if scope == ScopeDefault {
		scope = ScopeShared
	}

	info := &providerInfo{
		key:      key,
		scope:    scope,
		deferred: pc.Deferred,
		onError:  pc.OnError,
	}

	switch {
	case pc.UseValue != nil:
		info.kind = ProviderTypeValue
		info.value = pc.UseValue

	case pc.UseFactory != nil:
		info.kind = ProviderTypeFactory
		info.value = pc.UseFactory
		if err := compileFunction(info, pc.UseFactory, pc.Deps); err != nil {
			return nil, err
		}

	case pc.UseClass != nil:
		info.kind = ProviderTypeClass
		info.value = pc.UseClass
		if err := compileClass(info, pc.UseClass, pc.Deps); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// depKey 计算 Dep 的解析 key（类型/Token 加可选的注册名）
func depKey(dep Dep) (typeKey, error) {
	key, err := keyOf(dep.Provide)
	if err != nil {
		return typeKey{}, err
	}
	if dep.Name != "" && key.name == "" {
		key.name = dep.Name
	}
	return key, nil
}

// compileFunction 分析工厂/构造函数签名，生成依赖点和调用器
func compileFunction(info *providerInfo, fn any, explicit []Dep) error {
	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("di: 期望函数，得到 %v", fnType)
	}
	if fnType.NumOut() == 0 {
		return fmt.Errorf("di: 工厂/构造函数必须至少有一个返回值")
	}

	for i := 0; i < fnType.NumIn(); i++ {
		argType := fnType.In(i)
		site := depSite{
			typ:   argType,
			label: fmt.Sprintf("参数 %d", i),
		}

		if i < len(explicit) && explicit[i].Provide != nil {
			k, err := depKey(explicit[i])
			if err != nil {
				return err
			}
			site.key = k
			site.scope = explicit[i].Scope
			site.optional = explicit[i].Optional
		} else {
			// 按参数类型推断；any 无法对应任何注册 key
			if argType.Kind() == reflect.Interface && argType.NumMethod() == 0 {
				site.unresolvable = true
			}
			site.key = typeKey{typ: argType}
		}

		info.deps = append(info.deps, site)
	}

	info.invoke = newInvoker(fn)
	return nil
}

// compileClass 分析类提供者：构造函数或带 `di` 标签的结构体
func compileClass(info *providerInfo, class any, explicit []Dep) error {
	classVal := reflect.ValueOf(class)

	if classVal.Kind() == reflect.Func {
		return compileFunction(info, class, explicit)
	}

	// 结构体注入模式：注册类型即实现类型
	typ := classVal.Type()
	if t, ok := class.(reflect.Type); ok {
		typ = t
	} else if classVal.Kind() == reflect.Ptr {
		// 已初始化的实例指针：构建时以其字段值打底
		info.seed = class
	}
	info.implType = typ

	structType := typ
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("di: UseClass 需要构造函数、结构体指针或类型，得到 %v", typ)
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}

		// 未导出字段 reflect 无法赋值，注册时就报错而不是解析时 panic
		if field.PkgPath != "" {
			return fmt.Errorf("di: %s.%s 未导出，无法注入", structType.Name(), field.Name)
		}

		site, err := parseFieldTag(field, tagValue)
		if err != nil {
			return err
		}
		info.fields = append(info.fields, fieldSite{depSite: site, index: i})
	}

	return nil
}

// parseFieldTag 解析 `di` 标签: "name,local,optional"
// 第一段为服务名（可空），其余为作用域标记或 optional。
func parseFieldTag(field reflect.StructField, tag string) (depSite, error) {
	site := depSite{
		typ:   field.Type,
		label: fmt.Sprintf("字段 %s", field.Name),
	}

	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])

	// "di:?" / "di:optional" 的简写，此时服务名为空
	if name == "?" || name == "optional" {
		name = ""
		site.optional = true
	}

	for _, part := range parts[1:] {
		switch strings.TrimSpace(part) {
		case "optional", "?":
			site.optional = true
		case "shared":
			site.scope = ScopeShared
		case "local":
			site.scope = ScopeLocal
		case "deeplocal":
			site.scope = ScopeDeepLocal
		case "":
		default:
			return site, fmt.Errorf("di: 字段 %s 的标签包含未知选项 %q", field.Name, part)
		}
	}

	site.key = typeKey{typ: field.Type, name: name}
	return site, nil
}
