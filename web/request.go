package web

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
)

// ginRequest 把 gin 的请求上下文适配为绑定器的请求视图
//
// body 的解析是每请求一次的：首次访问时读取原始流并做 JSON 解析，
// 结果缓存在请求上，多个 body 参数复用同一次解析结果。
type ginRequest struct {
	ctx *gin.Context

	bodyParsed bool
	body       any
	bodyErr    error
}

func newGinRequest(ctx *gin.Context) *ginRequest {
	return &ginRequest{ctx: ctx}
}

func (r *ginRequest) Method() string {
	return r.ctx.Request.Method
}

func (r *ginRequest) Path() string {
	return r.ctx.Request.URL.Path
}

func (r *ginRequest) Param(name string) string {
	return r.ctx.Param(name)
}

func (r *ginRequest) Query(name string) []string {
	return r.ctx.Request.URL.Query()[name]
}

func (r *ginRequest) Header(name string) string {
	return r.ctx.GetHeader(name)
}

// Body 惰性解析 JSON 请求体
// 空 body 解析为 nil，不算错误；解析结果和错误都只产生一次。
func (r *ginRequest) Body() (any, error) {
	if r.bodyParsed {
		return r.body, r.bodyErr
	}
	r.bodyParsed = true

	raw, err := io.ReadAll(r.ctx.Request.Body)
	if err != nil {
		r.bodyErr = err
		return nil, r.bodyErr
	}
	if len(raw) == 0 {
		return nil, nil
	}

	r.bodyErr = json.Unmarshal(raw, &r.body)
	return r.body, r.bodyErr
}
