package exporter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

type fakeSink struct {
	mu     sync.Mutex
	writes [][]Event
}

func (s *fakeSink) Write(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	s.writes = append(s.writes, batch)
	return nil
}

func (s *fakeSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, b := range s.writes {
		out = append(out, b...)
	}
	return out
}

func TestContinuousFlushesNewHostEvent(t *testing.T) {
	g := core.New("env", nil)
	sink := &fakeSink{}
	exp := NewContinuous(g, sink, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	exp.Start(ctx)

	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "probe", 0)
	tmpl := g.GetOrCreateTemplate(loc, "plain", []string{"server"}, "probe", 0)
	g.GetOrCreateHost("h1", loc, tmpl, "probe", 0)

	require.Eventually(t, func() bool {
		for _, e := range sink.all() {
			if e.Kind == "new" && e.GlobalID == "h1" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	exp.Stop()
}

func TestContinuousStopFlushesRemainingBuffer(t *testing.T) {
	g := core.New("env", nil)
	sink := &fakeSink{}
	exp := NewContinuous(g, sink, time.Hour, nil)

	ctx := context.Background()
	exp.Start(ctx)

	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "probe", 0)
	tmpl := g.GetOrCreateTemplate(loc, "plain", []string{"server"}, "probe", 0)
	g.GetOrCreateHost("h1", loc, tmpl, "probe", 0)

	time.Sleep(20 * time.Millisecond)
	exp.Stop()

	found := false
	for _, e := range sink.all() {
		if e.GlobalID == "h1" {
			found = true
		}
	}
	assert.True(t, found, "expected Stop to flush the buffered new-host event")
}

func TestTriggeredInvokesFnOnInterval(t *testing.T) {
	g := core.New("env", nil)
	var calls int
	var mu sync.Mutex
	trig := NewTriggered(g, t.TempDir(), 10*time.Millisecond, func(ctx context.Context, outputDir string, snapshot *core.Graph) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}, nil)

	ctx := context.Background()
	trig.Start(ctx)
	time.Sleep(35 * time.Millisecond)
	trig.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}

func TestJSONFileSinkWritesOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	sink := NewJSONFileSink(dir + "/events.jsonl")

	err := sink.Write(context.Background(), []Event{
		{Kind: "new", ObjectType: "Host", GlobalID: "h1", At: time.Unix(0, 0)},
		{Kind: "changed", ObjectType: "Host", GlobalID: "h1", At: time.Unix(1, 0)},
	})
	require.NoError(t, err)

	err = sink.Write(context.Background(), []Event{
		{Kind: "deleted", ObjectType: "Host", GlobalID: "h1", At: time.Unix(2, 0)},
	})
	require.NoError(t, err)
}

func TestWriteGraphSnapshotJSONCreatesFile(t *testing.T) {
	g := core.New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "probe", 0)
	tmpl := g.GetOrCreateTemplate(loc, "plain", []string{"server"}, "probe", 0)
	g.GetOrCreateHost("h1", loc, tmpl, "probe", 0)

	dir := t.TempDir()
	err := WriteGraphSnapshotJSON(context.Background(), dir, g)
	require.NoError(t, err)
}
