package hosting

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/nest/core"
)

// WithManaged 将一组托管服务交给 HostedServiceManager 统一管理
// 与 core.WithHostedService 相比，管理器会并发启动所有服务，
// 并在任意服务出错时触发应用退出 (Fail Fast)。
func WithManaged(services ...HostedService) core.Option {
	return func(rt *core.Runtime) error {
		manager := NewHostedServiceManager(rt.Logger)
		for _, svc := range services {
			manager.Add(svc)
		}
		rt.Features.Set(manager)

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			errCh := manager.StartAll(context.Background())
			go func() {
				err, ok := <-errCh
				if !ok || err == nil {
					return
				}
				if rt.ErrorHandler != nil {
					rt.ErrorHandler(fmt.Errorf("hosted service exited with error: %w", err))
				}
				rt.Shutdown()
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return manager.StopAll(ctx)
		})

		return nil
	}
}

// WithTimedService 注册一个按固定间隔执行任务的托管服务
func WithTimedService(name string, interval time.Duration, task func(ctx context.Context) error) core.Option {
	return func(rt *core.Runtime) error {
		return WithManaged(NewTimedHostedService(name, interval, task, rt.Logger))(rt)
	}
}
