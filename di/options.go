package di

// Option 配置服务注册
type Option func(*ProviderConfig)

// WithScope 设置提供者的默认作用域
func WithScope(scope ScopeType) Option {
	return func(pc *ProviderConfig) {
		pc.Scope = scope
	}
}

// WithShared 将默认作用域设置为 Shared（默认）
func WithShared() Option {
	return WithScope(ScopeShared)
}

// WithLocal 将默认作用域设置为 Local
func WithLocal() Option {
	return WithScope(ScopeLocal)
}

// WithDeepLocal 将默认作用域设置为 DeepLocal
func WithDeepLocal() Option {
	return WithScope(ScopeDeepLocal)
}

// WithName 设置注册名
// 同一类型可以用不同名字注册多次，通过 GetNamed 或显式 Dep 按名解析。
func WithName(name string) Option {
	return func(pc *ProviderConfig) {
		pc.Name = name
	}
}

// WithValue 将已创建的实例注册为静态值
func WithValue(v any) Option {
	return func(pc *ProviderConfig) {
		pc.UseValue = v
		pc.UseFactory = nil
		pc.UseClass = nil
	}
}

// WithFactory 注册一个工厂函数来创建实例
// 工厂函数的参数将被自动注入。
func WithFactory(fn any) Option {
	return func(pc *ProviderConfig) {
		pc.UseFactory = fn
		pc.UseValue = nil
		pc.UseClass = nil
	}
}

// WithDeps 显式指定工厂/构造函数的依赖列表
// 按参数位置逐个覆盖自动推断的结果。
func WithDeps(deps ...Dep) Option {
	return func(pc *ProviderConfig) {
		pc.Deps = deps
	}
}

// WithDeferred 将工厂标记为延迟初始化
// 工厂在后台任务中执行，注册立即返回；onError 接收工厂失败的错误
// （可以为 nil，此时失败被静默吞掉，句柄值保持 nil）。
func WithDeferred(onError func(error)) Option {
	return func(pc *ProviderConfig) {
		pc.Deferred = true
		pc.OnError = onError
	}
}
