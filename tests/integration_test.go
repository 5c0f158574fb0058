package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gocrud/nest/binding"
	"github.com/gocrud/nest/config"
	"github.com/gocrud/nest/core"
	"github.com/gocrud/nest/di"
	"github.com/gocrud/nest/web"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// MockDialector 最小化实现，跳过实际 DB 连接
type MockDialector struct{}

func (m MockDialector) Name() string                                                        { return "mock" }
func (m MockDialector) Initialize(db *gorm.DB) error                                        { return nil }
func (m MockDialector) Migrator(db *gorm.DB) gorm.Migrator                                  { return nil }
func (m MockDialector) DataTypeOf(field *schema.Field) string                               { return "" }
func (m MockDialector) DefaultValueOf(field *schema.Field) clause.Expression                { return clause.Expr{} }
func (m MockDialector) BindVarTo(writer clause.Writer, stmt *gorm.Statement, v interface{}) {}
func (m MockDialector) QuoteTo(writer clause.Writer, str string)                            {}
func (m MockDialector) Explain(sql string, vars ...interface{}) string                      { return "" }

// TestService 模拟业务服务
type TestService struct {
	DB     *gorm.DB             `di:""`
	Config config.Configuration `di:""`
}

func (s *TestService) GetAppName() string {
	if s.Config == nil {
		return "no-config"
	}
	return s.Config.Get("app.name")
}

// TestController 模拟控制器
type TestController struct {
	Service *TestService
}

// NewTestController 使用构造函数注入
func NewTestController(svc *TestService) *TestController {
	return &TestController{Service: svc}
}

func (c *TestController) Mount() web.Mount {
	return web.Mount{
		Routes: []web.Route{
			{
				Method: http.MethodGet,
				Path:   "/ping",
				Handler: func(args []any) (any, error) {
					name := "unknown"
					if c.Service != nil {
						name = c.Service.GetAppName()
					}
					if c.Service != nil && c.Service.DB == nil {
						name += "-nodb"
					}
					return map[string]string{"pong": name}, nil
				},
			},
			{
				Method: http.MethodGet,
				Path:   "/items/:id",
				Params: []binding.Param{
					{Index: 0, Source: binding.SourcePath, Name: "id", Kind: binding.KindNumber},
				},
				Handler: func(args []any) (any, error) {
					return map[string]any{"id": args[0]}, nil
				},
			},
		},
	}
}

func TestIntegration(t *testing.T) {
	rt := core.NewRuntime()

	// 手动设置配置环境变量
	t.Setenv("TEST_APP_NAME", "IntegrationTest")

	// 应用模块
	err := rt.Apply(
		// 1. Config
		func(rt *core.Runtime) error {
			cfg, err := config.NewConfigurationBuilder().
				AddEnvironmentVariables("TEST_").
				Build()
			if err != nil {
				return err
			}
			return di.Register[config.Configuration](rt.Container, di.WithValue(cfg))
		},

		// 2. Database (Mock Component)
		func(rt *core.Runtime) error {
			mockDB := &gorm.DB{}
			// 注册默认数据库
			return rt.Provide(mockDB, di.WithValue(mockDB))
		},

		// 3. Web (Random Port)
		web.New(web.WithControllers(NewTestController), web.WithPort(0)),
	)
	if err != nil {
		t.Fatalf("Apply options failed: %v", err)
	}

	// 注册业务服务
	if err := rt.Provide(&TestService{}); err != nil {
		t.Fatalf("Provide TestService failed: %v", err)
	}

	// 构建容器
	if err := rt.Container.Build(); err != nil {
		t.Fatalf("Container build failed: %v", err)
	}

	// 启动应用
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rt.Lifecycle.Start(ctx, rt.Container); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rt.Lifecycle.Stop(ctx)

	// 验证
	host := core.GetFeature[*web.Host](rt)
	if host == nil {
		t.Fatal("Web Host feature not found")
	}

	addr := ""
	for i := 0; i < 20; i++ {
		addr = host.Address()
		if addr != "" && addr != ":0" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if addr == "" {
		t.Fatal("Web Host address is empty after waiting")
	}
	t.Logf("Web Host running at %s", addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", addr))
	if err != nil {
		t.Fatalf("HTTP Get failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read body failed: %v", err)
	}

	var pong map[string]string
	if err := json.Unmarshal(body, &pong); err != nil {
		t.Fatalf("Unmarshal body failed: %v", err)
	}
	if pong["pong"] != "IntegrationTest" {
		t.Errorf("Expected pong 'IntegrationTest', got %q", pong["pong"])
	}

	// 路由元数据快照
	routes := host.Routes()
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(routes))
	}

	// 路径参数绑定与类型转换
	resp2, err := http.Get(fmt.Sprintf("http://%s/items/42", addr))
	if err != nil {
		t.Fatalf("HTTP Get failed: %v", err)
	}
	defer resp2.Body.Close()

	var item map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&item); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if item["id"] != float64(42) {
		t.Errorf("Expected id 42, got %v", item["id"])
	}
}

// TestWorker for HostedService test
type TestWorker struct {
	Started chan struct{}
	Stopped chan struct{}
	StopCh  chan struct{}
}

func (w *TestWorker) Start(ctx context.Context) error {
	close(w.Started)
	<-w.StopCh // 模拟阻塞直到 Stop 被调用
	return nil
}

func (w *TestWorker) Stop(ctx context.Context) error {
	close(w.StopCh)
	// 模拟等待清理
	time.Sleep(10 * time.Millisecond)
	close(w.Stopped)
	return nil
}

func TestHostedService(t *testing.T) {
	rt := core.NewRuntime()

	worker := &TestWorker{
		Started: make(chan struct{}),
		Stopped: make(chan struct{}),
		StopCh:  make(chan struct{}),
	}

	err := rt.Apply(
		// Register pre-initialized pointer
		core.WithHostedService(worker),
	)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if err := rt.Container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	if err := rt.Lifecycle.Start(ctx, rt.Container); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-worker.Started:
	case <-time.After(100 * time.Millisecond):
		t.Error("Worker should be started")
	}

	if err := rt.Lifecycle.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-worker.Stopped:
	case <-time.After(100 * time.Millisecond):
		t.Error("Worker should be stopped")
	}
}
