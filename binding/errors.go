package binding

import (
	"fmt"
	"net/http"
)

// StatusError 携带 HTTP 状态码的错误
// 管道可以抛出实现此接口的错误来控制响应状态。
type StatusError interface {
	error
	Status() int
}

// CastError 类型转换失败（严格模式）
// 错误消息点名出错的参数和原始值，直接可作为 4xx 响应体。
type CastError struct {
	Param  string
	Raw    any
	Target string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("binding: 参数 %s 的值 %v 无法转换为 %s", e.Param, e.Raw, e.Target)
}

// Status 返回 400
func (e *CastError) Status() int {
	return http.StatusBadRequest
}

// BindingError 提取阶段失败（严格模式下的 body 解析错误等）
type BindingError struct {
	Param   string
	Message string
}

func (e *BindingError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("binding: 参数 %s 绑定失败: %s", e.Param, e.Message)
	}
	return fmt.Sprintf("binding: %s", e.Message)
}

// Status 返回 400
func (e *BindingError) Status() int {
	return http.StatusBadRequest
}

// PipeError 管道抛出的带状态错误的便捷实现
type PipeError struct {
	Code    int
	Message string
}

func (e *PipeError) Error() string {
	return e.Message
}

// Status 返回管道指定的状态码
func (e *PipeError) Status() int {
	return e.Code
}
