package config

import (
	"fmt"
	"strings"

	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
)

// LoadOptions 配置加载选项
type LoadOptions struct {
	Optional  bool
	EnvPrefix string
	Etcd      *EtcdOptions
}

// LoadOption 配置加载选项函数
type LoadOption func(*LoadOptions)

// Optional 将配置文件标记为可选，文件不存在时不报错
func Optional() LoadOption {
	return func(o *LoadOptions) {
		o.Optional = true
	}
}

// WithEnvPrefix 设置环境变量前缀
// 只有带此前缀的环境变量会进入配置（前缀在键中被剥掉）。
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *LoadOptions) {
		o.EnvPrefix = prefix
	}
}

// WithEtcd 追加 etcd 远程配置源，覆盖本地文件的同名键
func WithEtcd(etcdOpts EtcdOptions) LoadOption {
	return func(o *LoadOptions) {
		o.Etcd = &etcdOpts
	}
}

// Load 加载配置文件
// 加载顺序：文件 -> 环境变量 -> etcd 远程源（可选），后者覆盖前者。
func Load(path string, opts ...LoadOption) core.Option {
	return func(rt *core.Runtime) error {
		options := &LoadOptions{}
		for _, opt := range opts {
			opt(options)
		}

		builder := NewConfigurationBuilder()

		if strings.HasSuffix(path, ".json") {
			builder.AddJsonFile(path, options.Optional)
		} else {
			builder.AddYamlFile(path, options.Optional)
		}

		builder.AddEnvironmentVariables(options.EnvPrefix)

		if options.Etcd != nil {
			builder.AddEtcd(*options.Etcd)
		}

		cfg, err := builder.Build()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}

		// 注册 Configuration 到 DI 容器
		if err := di.Register[Configuration](rt.Container, di.WithValue(cfg)); err != nil {
			return err
		}

		// 注册为 Runtime Feature
		rt.Features.Set(cfg)

		applySettings(rt, cfg)
		return nil
	}
}

// applySettings 把框架开关类配置键映射到 Runtime.Settings
// 键不存在时保持当前值，显式 Option 可以在 Load 之后覆盖。
func applySettings(rt *core.Runtime, cfg Configuration) {
	if v, err := cfg.GetBool("nest:validation:enabled"); err == nil {
		rt.Settings.EnableValidation = v
	}
	if v, err := cfg.GetBool("nest:binding:strict"); err == nil {
		rt.Settings.StrictBinding = v
	}
}

// Bind 将配置绑定到结构体并注册到 DI 容器
func Bind[T any](rt *core.Runtime, section string) error {
	return rt.Invoke(func(cfg Configuration) error {
		var settings T
		if err := cfg.Bind(section, &settings); err != nil {
			return fmt.Errorf("config: failed to bind section '%s': %w", section, err)
		}

		// 注册为单例
		return rt.Provide(&settings)
	})
}
