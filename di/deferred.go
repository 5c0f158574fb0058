package di

import (
	"sync"
	"sync/atomic"
)

// DeferredHandle 延迟初始化句柄
//
// 延迟工厂注册后立即返回句柄（值为 nil、未 settle），工厂在后台
// 任务中执行，不阻塞调用方。值的写入是 settle-once 的：从 nil 到
// 最终状态恰好变化一次，失败时保持 nil。句柄在进程生命周期内存活。
//
// 消费方注入到的是句柄在注入时刻的【当前值】：settle 前注入得到
// nil；所有在 settle 前的并发读取都观察到 nil。
type DeferredHandle struct {
	key     typeKey
	once    sync.Once
	val     atomic.Value // 存放 deferredBox，settle 前为空
	settled atomic.Bool
	onError func(error)
}

// deferredBox atomic.Value 不能直接存 nil，用包装盒承载
type deferredBox struct {
	v any
}

func newDeferredHandle(key typeKey, onError func(error)) *DeferredHandle {
	return &DeferredHandle{key: key, onError: onError}
}

// Token 返回句柄对应的 key 名称
func (h *DeferredHandle) Token() string {
	return h.key.String()
}

// Value 返回当前值；settle 前或工厂失败后为 nil
func (h *DeferredHandle) Value() any {
	if boxed := h.val.Load(); boxed != nil {
		return boxed.(deferredBox).v
	}
	return nil
}

// Settled 返回后台工厂是否已结束（无论成功或失败）
func (h *DeferredHandle) Settled() bool {
	return h.settled.Load()
}

// settle 写入最终状态，恰好一次
// 失败时值保持 nil，错误只通过 OnError 钩子上报，框架不做重试。
func (h *DeferredHandle) settle(v any, err error) {
	h.once.Do(func() {
		if err != nil {
			if h.onError != nil {
				h.onError(err)
			}
			h.settled.Store(true)
			return
		}
		if v != nil {
			// 先写值再置 settled，读到 settled 的一方必然能读到值
			h.val.Store(deferredBox{v: v})
		}
		h.settled.Store(true)
	})
}

// launchDeferred 启动所有延迟工厂的后台任务
// 每个工厂在独立的解析上下文中构建，互不影响，也不影响前台解析。
func (c *Container) launchDeferred() {
	for key, handle := range c.handles {
		info := c.providers[key]
		go func(info *providerInfo, handle *DeferredHandle) {
			rctx := c.NewContext()
			stack := &buildStack{}
			val, err := c.construct(rctx, stack, info, false)
			handle.settle(val, err)
		}(info, handle)
	}
}
