package web

import (
	"fmt"

	"github.com/gocrud/nest/binding"
	"github.com/gocrud/nest/di"
)

// HandlerFunc 路由处理函数
// args 是装配完成的参数列表：绑定参数和注入的依赖按 Index 就位。
type HandlerFunc func(args []any) (any, error)

// Inject 方法级依赖注入点
// 同一请求的所有注入点共享一个解析上下文（Local 实例在请求内复用）。
type Inject struct {
	// Index 依赖在处理器参数列表中的位置
	Index int
	// Dep 依赖描述（key、作用域标记、可选性）
	Dep di.Dep
}

// Route 路由描述符
//
// 启动时由控制器的 Mount 声明一次，之后只读。绑定参数 Params 和
// 注入点 Inject 的 Index 并集必须从 0 开始唯一且连续。
type Route struct {
	// Method HTTP 方法
	Method string
	// Path 路由路径（gin 语法，如 "/users/:id"）
	Path string
	// Params 绑定参数描述表
	Params []binding.Param
	// Inject 方法级注入点
	Inject []Inject
	// Pipes 方法级管道（在全局和控制器级之后执行）
	Pipes []binding.Pipe
	// Handler 处理函数
	Handler HandlerFunc
}

// Mount 控制器的路由声明
type Mount struct {
	// BasePath 控制器级路径前缀
	BasePath string
	// Pipes 控制器级管道（在全局管道之后、方法级之前执行）
	Pipes []binding.Pipe
	// Routes 路由描述表
	Routes []Route
}

// Controller 控制器接口
// 控制器经由 DI 容器解析，Mount 返回显式构建的路由描述表。
type Controller interface {
	Mount() Mount
}

// RouteInfo 路由元数据的只读快照
// 供文档生成等协作方查询，读取方绝不会改变路由表。
type RouteInfo struct {
	Method string
	Path   string
	Params []binding.Param
}

// compiledRoute 装配完成的路由（内部形态）
type compiledRoute struct {
	method  string
	path    string
	arity   int // 处理器参数个数
	params  []binding.Param
	inject  []Inject
	pipes   []binding.Pipe // 全局 + 控制器级 + 方法级，已按序合并
	handler HandlerFunc
}

// compileRoute 校验并编译一条路由
// 序号校验和依赖接线检查都发生在启动期，失败即启动失败。
func compileRoute(route Route, mount Mount, globalPipes []binding.Pipe, container *di.Container) (compiledRoute, error) {
	indexes := make([]int, 0, len(route.Params)+len(route.Inject))
	for _, p := range route.Params {
		indexes = append(indexes, p.Index)
	}

	deps := make([]di.Dep, 0, len(route.Inject))
	for _, inj := range route.Inject {
		indexes = append(indexes, inj.Index)
		deps = append(deps, inj.Dep)
	}

	if err := binding.ValidateIndexes(indexes); err != nil {
		return compiledRoute{}, fmt.Errorf("web: 路由 %s %s: %w", route.Method, route.Path, err)
	}
	if err := container.CheckDeps(deps); err != nil {
		return compiledRoute{}, fmt.Errorf("web: 路由 %s %s: %w", route.Method, route.Path, err)
	}
	if route.Handler == nil {
		return compiledRoute{}, fmt.Errorf("web: 路由 %s %s 缺少处理函数", route.Method, route.Path)
	}

	pipes := make([]binding.Pipe, 0, len(globalPipes)+len(mount.Pipes)+len(route.Pipes))
	pipes = append(pipes, globalPipes...)
	pipes = append(pipes, mount.Pipes...)
	pipes = append(pipes, route.Pipes...)

	return compiledRoute{
		method:  route.Method,
		path:    joinPath(mount.BasePath, route.Path),
		arity:   len(indexes),
		params:  route.Params,
		inject:  route.Inject,
		pipes:   pipes,
		handler: route.Handler,
	}, nil
}

func joinPath(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" || path == "/" {
		return base
	}
	if base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
