package binding

// ArgumentMetadata 管道收到的参数元数据
type ArgumentMetadata struct {
	// Source 参数的提取来源
	Source Source
	// Kind 参数声明的目标类型
	Kind Kind
	// Param 参数名
	Param string
}

// Pipe 值转换/校验管道
//
// 管道在类型转换之后、依赖注入之前按序执行（全局 -> 控制器级 ->
// 方法级），每个管道收到前一个的输出。管道抛出的错误会中止请求，
// 并作为响应原样传播（实现 StatusError 可携带自己的状态码）。
type Pipe interface {
	Transform(value any, meta ArgumentMetadata) (any, error)
}

// PipeFunc 函数形式的管道
type PipeFunc func(value any, meta ArgumentMetadata) (any, error)

// Transform 实现 Pipe 接口
func (f PipeFunc) Transform(value any, meta ArgumentMetadata) (any, error) {
	return f(value, meta)
}

// RunPipes 依次执行管道链
// 任何一个管道报错即中止，错误原样返回。
func RunPipes(pipes []Pipe, value any, meta ArgumentMetadata) (any, error) {
	var err error
	for _, pipe := range pipes {
		value, err = pipe.Transform(value, meta)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}
