package database

import (
	"context"
	"fmt"

	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
	"gorm.io/gorm"
)

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*DatabaseOptions)) BuilderOption {
	return func(b *Builder) {
		// 将变长参数转换为单个配置函数
		var configure func(*DatabaseOptions)
		if len(opts) > 0 {
			configure = func(o *DatabaseOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, dialector, configure)
	}
}

// New 启用数据库能力
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		// 构建工厂（连接和自动迁移在这里发生）
		factory, err := builder.Build(rt.Logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		// 注册工厂到 DI
		if err := rt.Provide(factory, di.WithValue(factory)); err != nil {
			return err
		}

		// 注册各个数据库实例到 DI
		var regErr error
		factory.Each(func(name string, db *gorm.DB) {
			// 注册命名实例
			if err := rt.Provide(db, di.WithName(name), di.WithValue(db)); err != nil {
				regErr = err
			}

			// 如果是 default，同时也注册为默认实例
			if name == "default" {
				if err := rt.Provide(db, di.WithValue(db)); err != nil {
					regErr = err
				}
			}
		})

		if regErr != nil {
			return fmt.Errorf("database: failed to register instance: %w", regErr)
		}

		// 注册清理钩子
		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return factory.Close()
		})

		return nil
	}
}
