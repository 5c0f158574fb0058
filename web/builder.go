package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/nest/binding"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
)

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger          logging.Logger
	port            int
	strict          bool
	engine          *gin.Engine
	globalPipes     []binding.Pipe
	controllerCtors []any // 存储控制器构造函数或实例
	registeredTypes []reflect.Type
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 默认中间件：恢复 panic
	engine.Use(gin.Recovery())

	return &Builder{
		port:            8080,
		engine:          engine,
		controllerCtors: make([]any, 0),
		registeredTypes: make([]reflect.Type, 0),
	}
}

// UseLogger 设置日志记录器
func (b *Builder) UseLogger(logger logging.Logger) *Builder {
	b.logger = logger
	return b
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// UseStrictBinding 开启严格绑定模式
// 严格模式下转换失败立即 400，宽松模式下以 NaN/nil 占位继续执行。
func (b *Builder) UseStrictBinding() *Builder {
	b.strict = true
	return b
}

// UseGlobalPipes 注册全局管道
// 全局管道对所有路由生效，排在控制器级和方法级管道之前。
func (b *Builder) UseGlobalPipes(pipes ...binding.Pipe) *Builder {
	b.globalPipes = append(b.globalPipes, pipes...)
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器
// 传入参数可以是：
// 1. 控制器的构造函数 (例如 NewUserController) -> 推荐，支持构造函数注入
// 2. 控制器实例指针 (例如 &UserController{}) -> 支持字段注入 (di tag)
// 这些控制器将在 Host 启动时通过 DI 容器进行解析和路由注册
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllerCtors = append(b.controllerCtors, controllers...)
	return b
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RegisterServices 注册控制器到 DI 容器
// 必须在容器 Build 之前调用；重复注册是启动期错误。
func (b *Builder) RegisterServices(container *di.Container) error {
	for _, item := range b.controllerCtors {
		serviceType, err := di.Provide(container, item)
		if err != nil {
			return fmt.Errorf("web: failed to register controller %T: %w", item, err)
		}
		b.registeredTypes = append(b.registeredTypes, serviceType)
	}
	return nil
}

// Build 构建 Web 主机
// 这里的 container 必须是全局的 DI 容器，用于后续解析 Controller
func (b *Builder) Build(container *di.Container) *Host {
	return &Host{
		port:            b.port,
		strict:          b.strict,
		engine:          b.engine,
		container:       container,
		globalPipes:     b.globalPipes,
		controllerTypes: b.registeredTypes,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine,
		},
		logger: b.logger,
	}
}

// Host Web 主机
type Host struct {
	port            int
	strict          bool
	engine          *gin.Engine
	server          *http.Server
	logger          logging.Logger
	container       *di.Container
	globalPipes     []binding.Pipe
	controllerTypes []reflect.Type
	routes          []RouteInfo
}

// Address 获取监听地址 (e.g., "[::]:50234")
// 仅在 Start 后有效
func (h *Host) Address() string {
	if h.server != nil {
		return h.server.Addr
	}
	return ""
}

// Routes 返回已注册路由的元数据快照
// 仅在 mapControllers 之后有内容；返回的是副本，读取方改不动路由表。
func (h *Host) Routes() []RouteInfo {
	out := make([]RouteInfo, len(h.routes))
	for i, r := range h.routes {
		params := make([]binding.Param, len(r.Params))
		copy(params, r.Params)
		out[i] = RouteInfo{Method: r.Method, Path: r.Path, Params: params}
	}
	return out
}

// Start 启动 Web 主机
// 注意：此方法会阻塞，直到服务退出。框架会在独立的 Goroutine 中调用它。
func (h *Host) Start(ctx context.Context) error {
	// 1. 延迟解析并注册控制器路由
	if err := h.mapControllers(); err != nil {
		return fmt.Errorf("web: failed to map controllers: %w", err)
	}

	// 2. 监听端口 (同步，确保端口可用)
	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	// 更新 server 地址
	h.server.Addr = ln.Addr().String()

	if h.logger != nil {
		h.logger.Info("Web host started",
			logging.Field{Key: "address", Value: h.server.Addr})
	}

	// 3. 启动服务 (阻塞)
	// Serve 会一直阻塞直到 Shutdown 被调用或发生错误
	if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		if h.logger != nil {
			h.logger.Error("Web host error", logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	}

	return nil
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	if h.logger != nil {
		h.logger.Info("Stopping web host")
	}

	if err := h.server.Shutdown(ctx); err != nil {
		if h.logger != nil {
			h.logger.Error("Failed to shutdown web host gracefully",
				logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	}

	if h.logger != nil {
		h.logger.Info("Web host stopped")
	}
	return nil
}

// mapControllers 从容器解析控制器并编译其路由表
// 任何一条路由编译失败（序号不连续、依赖未接线）都让启动失败。
func (h *Host) mapControllers() error {
	for _, typ := range h.controllerTypes {
		instance, err := h.container.Get(typ)
		if err != nil {
			return fmt.Errorf("failed to resolve controller %v: %w", typ, err)
		}

		ctrl, ok := instance.(Controller)
		if !ok {
			return fmt.Errorf("instance %v does not implement web.Controller interface", typ)
		}

		if err := h.mapMount(ctrl.Mount()); err != nil {
			return fmt.Errorf("controller %v: %w", typ, err)
		}
		if h.logger != nil {
			h.logger.Debug("Mapped controller routes", logging.Field{Key: "controller", Value: typ.String()})
		}
	}
	return nil
}

// mapMount 编译一个控制器的路由声明并挂到引擎上
func (h *Host) mapMount(mount Mount) error {
	for _, route := range mount.Routes {
		compiled, err := compileRoute(route, mount, h.globalPipes, h.container)
		if err != nil {
			return err
		}

		h.engine.Handle(compiled.method, compiled.path, h.handlerFor(compiled))
		h.routes = append(h.routes, RouteInfo{
			Method: compiled.method,
			Path:   compiled.path,
			Params: compiled.params,
		})
	}
	return nil
}
