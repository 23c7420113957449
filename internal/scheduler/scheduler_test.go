package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

func TestFullScanEnqueuesEveryCollector(t *testing.T) {
	g := core.New("env", nil)
	s := New("env", g, 10, nil, slog.Default())

	var mu sync.Mutex
	var ran []string
	collector := func(ctx context.Context, g *core.Graph, cfg map[string]interface{}, log *slog.Logger) error {
		mu.Lock()
		ran = append(ran, cfg["name"].(string))
		mu.Unlock()
		return nil
	}

	s.RegisterCollector("a", collector, map[string]interface{}{"name": "a"}, -1)
	s.RegisterCollector("b", collector, map[string]interface{}{"name": "b"}, -1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) == 2
	}, time.Second, 5*time.Millisecond)

	s.Shutdown()
}

func TestFreezeStopsWorkersAndMeltResumes(t *testing.T) {
	g := core.New("env", nil)
	s := New("env", g, 10, nil, slog.Default())

	blocked := make(chan struct{})
	collector := func(ctx context.Context, g *core.Graph, cfg map[string]interface{}, log *slog.Logger) error {
		close(blocked)
		<-ctx.Done()
		return nil
	}
	s.RegisterCollector("slow", collector, nil, -1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("collector never started")
	}

	done := make(chan struct{})
	go func() { s.Freeze(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("freeze never returned")
	}

	s.Melt()
	s.Shutdown()
}
