package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
	"github.com/redis/go-redis/v9"
)

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*RedisClientOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*RedisClientOptions)
		if len(opts) > 0 {
			configure = func(o *RedisClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.AddClient(name, configure)
	}
}

// New 启用 Redis 能力
//
// 每个客户端注册为【延迟】工厂：连接和 Ping 在容器 Build 后的
// 后台任务里执行，应用启动不等待 Redis 就绪。消费方以指针注入，
// 连接完成前拿到 nil，失败通过 ErrorHandler 上报且不重试。
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		configs, err := builder.Build()
		if err != nil {
			return err
		}
		if len(configs) == 0 {
			return nil
		}

		factory := NewRedisClientFactory()
		if err := rt.Provide(factory, di.WithValue(factory)); err != nil {
			return err
		}

		onError := func(err error) {
			if rt.ErrorHandler != nil {
				rt.ErrorHandler(fmt.Errorf("redis: %w", err))
			}
			if rt.Logger != nil {
				rt.Logger.Error("Redis client failed to connect",
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		// 注册各个客户端（default 名下的同时注册为无名默认）
		for name, cfg := range configs {
			cfg := cfg
			var once sync.Once
			var client *redis.Client
			var connErr error
			connect := func() (*redis.Client, error) {
				once.Do(func() {
					client, connErr = factory.Connect(cfg)
				})
				return client, connErr
			}

			if err := rt.Provide(connect, di.WithName(name), di.WithDeferred(onError)); err != nil {
				return fmt.Errorf("redis: failed to register client '%s': %w", name, err)
			}
			if name == "default" {
				if err := rt.Provide(connect, di.WithDeferred(onError)); err != nil {
					return fmt.Errorf("redis: failed to register default client: %w", err)
				}
			}
		}

		// 注册清理钩子
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return factory.Close()
		})

		return nil
	}
}
