package redis

import (
	"fmt"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	configs map[string]RedisClientOptions
	errors  []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]RedisClientOptions),
		errors:  make([]error, 0),
	}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	// 检查名称冲突
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("redis client '%s' already configured", name))
		return b
	}

	// 创建默认配置
	opts := NewDefaultOptions(name)

	// 应用用户配置
	if configure != nil {
		configure(opts)
	}

	// 验证配置
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}

	// 保存配置
	b.configs[name] = *opts

	return b
}

// Build 返回校验过的客户端配置表
// 连接尚未建立，真正的拨号发生在容器的延迟工厂里。
func (b *Builder) Build() (map[string]RedisClientOptions, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("redis configuration errors: %v", b.errors)
	}
	return b.configs, nil
}
