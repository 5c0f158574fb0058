package config

import (
	"sync"
	"testing"
)

func TestValueStore(t *testing.T) {
	store := NewValueStore()

	data := map[string]any{"key": "value"}
	store.Store(data)

	loaded := store.Load()
	if loaded["key"] != "value" {
		t.Error("Load failed")
	}

	// Test concurrency
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Load()
		}()
	}
	wg.Wait()
}

func TestPathCache(t *testing.T) {
	cache := &PathCache{}

	path := "a:b.c"
	parts := cache.GetPathSegments(path)

	if len(parts) != 3 {
		t.Errorf("Expected 3 parts, got %d", len(parts))
	}
	if parts[0] != "a" || parts[1] != "b" || parts[2] != "c" {
		t.Error("Parse failed")
	}

	// Test cache hit
	parts2 := cache.GetPathSegments(path)
	if len(parts2) != 3 {
		t.Errorf("Expected 3 parts on second call, got %d", len(parts2))
	}
}

func TestInMemoryAndSection(t *testing.T) {
	builder := NewConfigurationBuilder()
	builder.AddInMemory(map[string]any{
		"server": map[string]any{
			"host": "localhost",
			"port": 8080,
		},
	})

	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := cfg.Get("server:host"); got != "localhost" {
		t.Errorf("Expected localhost, got %q", got)
	}

	port, err := cfg.GetInt("server.port")
	if err != nil || port != 8080 {
		t.Errorf("Expected port 8080, got %d (err=%v)", port, err)
	}

	type serverSettings struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}
	settings, err := Section[serverSettings](cfg, "server")
	if err != nil {
		t.Fatalf("Section bind failed: %v", err)
	}
	if settings.Host != "localhost" || settings.Port != 8080 {
		t.Errorf("Unexpected settings: %+v", settings)
	}
}

func BenchmarkConfigGet(b *testing.B) {
	builder := NewConfigurationBuilder()
	builder.AddInMemory(map[string]any{
		"server": map[string]any{
			"host": "localhost",
			"port": 8080,
		},
	})
	config, _ := builder.Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		config.Get("server:host")
	}
}
