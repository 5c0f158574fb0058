package nest

import (
	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
)

// WithService 注册一个服务提供者
// target 可以是构造函数、结构体指针或 reflect.Type。
func WithService(target any, opts ...di.Option) core.Option {
	return func(rt *core.Runtime) error {
		return rt.Provide(target, opts...)
	}
}

// WithValue 以固定值注册一个服务
func WithValue(provide any, value any) core.Option {
	return func(rt *core.Runtime) error {
		return rt.Provide(provide, di.WithValue(value))
	}
}

// WithLogger 设置框架日志记录器
func WithLogger(logger logging.Logger) core.Option {
	return func(rt *core.Runtime) error {
		rt.Logger = logger
		return nil
	}
}

// WithLogging 通过 LoggingBuilder 定制框架日志
// 替换默认的控制台 Logger，例如追加文件输出或调整最小级别。
func WithLogging(configure func(b *logging.LoggingBuilder)) core.Option {
	return func(rt *core.Runtime) error {
		builder := logging.NewLoggingBuilder()
		configure(builder)
		rt.Logger = builder.Build().CreateLogger("app")
		return nil
	}
}

// WithoutValidation 关闭容器构建期的整图校验
// 关闭后循环依赖、缺失依赖等缺陷推迟到首次解析时才暴露。
func WithoutValidation() core.Option {
	return func(rt *core.Runtime) error {
		rt.Settings.EnableValidation = false
		return nil
	}
}

// WithStrictBinding 启用严格参数绑定
// Web 路由的类型转换失败将直接返回 400，而不是以占位值继续。
func WithStrictBinding() core.Option {
	return func(rt *core.Runtime) error {
		rt.Settings.StrictBinding = true
		return nil
	}
}

// WithConfigure 直接访问 Runtime 做自定义配置
func WithConfigure(fn func(rt *core.Runtime) error) core.Option {
	return func(rt *core.Runtime) error {
		return fn(rt)
	}
}
