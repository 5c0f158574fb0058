package binding

// Request 绑定器对传输层的最小视图
//
// 路径/查询/头的值以字符串或字符串数组到达；body 的值由 JSON
// 解析产出、已经带类型。Body 的解析是每请求一次的：实现方必须在
// 首次调用后缓存解析结果，多个 body 参数复用同一次解析。
type Request interface {
	// Method 请求方法
	Method() string
	// Path 请求路径
	Path() string
	// Param 路径段参数
	Param(name string) string
	// Query 查询参数的所有值；不存在时返回空切片
	Query(name string) []string
	// Header 请求头（大小写不敏感）；不存在时返回空串
	Header(name string) string
	// Body 惰性解析的 JSON 请求体
	Body() (any, error)
}

// Extract 按描述符从请求中提取原始值
//
// body 解析失败时：宽松模式下该参数绑定为缺失（nil）；严格模式下
// 立即返回 400 级的 BindingError，处理器不会被调用。
func Extract(req Request, p Param, strict bool) (any, error) {
	switch p.Source {
	case SourcePath:
		return req.Param(p.Name), nil

	case SourceQuery:
		vals := req.Query(p.Name)
		if len(vals) == 0 {
			return nil, nil
		}
		if p.Kind == KindArray {
			return vals, nil
		}
		return vals[0], nil

	case SourceHeader:
		if val := req.Header(p.Name); val != "" {
			return val, nil
		}
		return nil, nil

	case SourceBody:
		body, err := req.Body()
		if err != nil {
			if strict {
				return nil, &BindingError{Param: p.Name, Message: err.Error()}
			}
			return nil, nil
		}
		if p.Name == "" {
			return body, nil
		}
		// 字段提取只对对象形态的 body 有意义
		if m, ok := body.(map[string]any); ok {
			return m[p.Name], nil
		}
		return nil, nil
	}

	return nil, nil
}

// BindArgs 执行完整的参数装配：提取 -> 类型转换 -> 管道链
//
// 返回 按 Index 定位的参数值表；任何一步失败都立即中止并返回
// 该错误，没有回退路径。依赖注入和处理器调用发生在这之后，
// 由请求管线负责。
func BindArgs(req Request, params []Param, pipes []Pipe, strict bool) (map[int]any, error) {
	args := make(map[int]any, len(params))

	for _, p := range params {
		raw, err := Extract(req, p, strict)
		if err != nil {
			return nil, err
		}

		val, err := Cast(raw, p, strict)
		if err != nil {
			return nil, err
		}

		meta := ArgumentMetadata{Source: p.Source, Kind: p.Kind, Param: p.Name}
		val, err = RunPipes(pipes, val, meta)
		if err != nil {
			return nil, err
		}

		args[p.Index] = val
	}

	return args, nil
}
