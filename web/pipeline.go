package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/nest/binding"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
)

// handlerFor 编译一条路由的请求管线
//
// 单个请求的参数装配顺序固定：提取 -> 类型转换 -> 管道链 ->
// 依赖注入 -> 处理器调用，任何一步失败都立即中止到错误渲染，
// 没有回退路径。并发请求之间没有顺序约束。
func (h *Host) handlerFor(route compiledRoute) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		req := newGinRequest(ctx)

		bound, err := binding.BindArgs(req, route.params, route.pipes, h.strict)
		if err != nil {
			h.renderError(ctx, err)
			return
		}

		args := make([]any, route.arity)
		for idx, val := range bound {
			args[idx] = val
		}

		// 方法级依赖注入：同一请求的所有注入点共享一个解析上下文
		if len(route.inject) > 0 {
			rctx := h.container.NewContext()
			for _, inj := range route.inject {
				val, err := h.container.GetInContext(rctx, inj.Dep)
				if err != nil {
					h.renderError(ctx, err)
					return
				}
				args[inj.Index] = val
			}
		}

		result, err := route.handler(args)
		if err != nil {
			h.renderError(ctx, err)
			return
		}

		if result == nil {
			ctx.Status(http.StatusNoContent)
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}

// renderError 把管线错误映射为传输层响应
//
// 绑定/转换错误是 400 级并点名参数；管道错误携带自己的状态码
// 原样传播；请求期的依赖解析错误是 500 级。负载形态为
// { kind, message, param?, chain? }，同时上报给错误处理协作方。
func (h *Host) renderError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	payload := gin.H{
		"kind":    "internal",
		"message": err.Error(),
	}

	var castErr *binding.CastError
	var bindErr *binding.BindingError
	var cyclicErr *di.CircularDependencyError
	var unknownErr *di.UnknownTokenError
	var statusErr binding.StatusError

	switch {
	case errors.As(err, &castErr):
		status = castErr.Status()
		payload["kind"] = "cast"
		payload["param"] = castErr.Param

	case errors.As(err, &bindErr):
		status = bindErr.Status()
		payload["kind"] = "binding"
		if bindErr.Param != "" {
			payload["param"] = bindErr.Param
		}

	case errors.As(err, &cyclicErr):
		payload["kind"] = "dependency"
		payload["chain"] = cyclicErr.Chain

	case errors.As(err, &unknownErr):
		payload["kind"] = "dependency"

	case errors.As(err, &statusErr):
		status = statusErr.Status()
		payload["kind"] = "pipe"
	}

	if h.logger != nil {
		h.logger.Warn("Request pipeline aborted",
			logging.Field{Key: "path", Value: ctx.Request.URL.Path},
			logging.Field{Key: "status", Value: status},
			logging.Field{Key: "error", Value: err.Error()})
	}

	ctx.AbortWithStatusJSON(status, payload)
}
