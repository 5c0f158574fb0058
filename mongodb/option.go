package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/mgo"
	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/logging"
)

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		var configure func(*MongoOptions)
		if len(opts) > 0 {
			configure = func(o *MongoOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, uri, configure)
	}
}

// New 启用 MongoDB 能力
//
// 客户端注册为【延迟】工厂：拨号在容器 Build 后的后台任务里执行，
// 消费方在连接完成前注入到 nil，失败通过 ErrorHandler 上报。
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

		factory := NewMongoFactory()
		if err := rt.Provide(factory, di.WithValue(factory)); err != nil {
			return err
		}

		onError := func(err error) {
			if rt.ErrorHandler != nil {
				rt.ErrorHandler(fmt.Errorf("mongodb: %w", err))
			}
			if rt.Logger != nil {
				rt.Logger.Error("Mongo client failed to connect",
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		// 注册 Client 实例
		for name, cfg := range configs {
			cfg := cfg
			var once sync.Once
			var client *mgo.Client
			var connErr error
			connect := func() (*mgo.Client, error) {
				once.Do(func() {
					client, connErr = factory.Connect(cfg)
				})
				return client, connErr
			}

			if err := rt.Provide(connect, di.WithName(name), di.WithDeferred(onError)); err != nil {
				return fmt.Errorf("mongodb: failed to register client '%s': %w", name, err)
			}
			if name == "default" {
				if err := rt.Provide(connect, di.WithDeferred(onError)); err != nil {
					return fmt.Errorf("mongodb: failed to register default client: %w", err)
				}
			}
		}

		// 注册清理
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return factory.Close()
		})

		return nil
	}
}
