package core

import (
	"sync"

	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
)

// Settings 框架级开关
type Settings struct {
	// EnableValidation 是否在容器 Build 时做整图校验（默认开启）
	// 关闭后循环依赖等缺陷推迟到首次解析时才暴露。
	EnableValidation bool

	// StrictBinding 是否启用严格参数绑定（默认宽松）
	// 严格模式下类型转换失败直接 400，宽松模式以 NaN/nil 占位。
	StrictBinding bool
}

// Runtime 是框架的上帝对象，作为状态容器
type Runtime struct {
	// Features 存放构建时特性 (WebBuilder, DbBuilder 等)
	Features FeatureCollection

	// Container 核心依赖注入容器
	Container *di.Container

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// Settings 框架开关
	Settings Settings

	// Logger 框架日志记录器
	Logger logging.Logger

	// shutdownCh 用于通知应用退出
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	// ErrorHandler 用于记录运行时产生的严重错误
	// 外部可以通过设置此字段来接管错误日志
	ErrorHandler func(err error)
}

// NewRuntime 创建一个新的运行时实例
// 默认携带一个控制台 Logger，可通过 WithLogger/WithLogging 替换。
func NewRuntime() *Runtime {
	logger := logging.NewLogger()
	return &Runtime{
		Container:  di.NewContainer(),
		Lifecycle:  NewLifecycle(),
		Settings:   Settings{EnableValidation: true},
		Logger:     logger,
		shutdownCh: make(chan struct{}),
		ErrorHandler: func(err error) {
			logger.Error("Runtime error", logging.Field{Key: "error", Value: err.Error()})
		},
	}
}

// Shutdown 请求应用退出
// 可以被多个协作方并发调用（多个托管服务同时失败），只有首次生效。
func (rt *Runtime) Shutdown() {
	rt.shutdownOnce.Do(func() {
		close(rt.shutdownCh)
	})
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Provide 注册服务提供者 (语法糖)
// 支持构造函数、结构体指针或接口绑定
func (rt *Runtime) Provide(target any, opts ...di.Option) error {
	_, err := di.Provide(rt.Container, target, opts...)
	return err
}

// Invoke 调用函数并注入依赖 (语法糖)
func (rt *Runtime) Invoke(function any) error {
	return di.Invoke(rt.Container, function)
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}
