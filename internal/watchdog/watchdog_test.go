package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingReporter struct {
	mu     sync.Mutex
	health map[string]bool
}

func (r *recordingReporter) SetComponentHealth(component string, healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.health == nil {
		r.health = make(map[string]bool)
	}
	r.health[component] = healthy
}

func (r *recordingReporter) get(component string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.health[component]
	return v, ok
}

func TestWatchdog_Heartbeat(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rep := &recordingReporter{}
	w := NewWatchdog(time.Second, rep)
	w.now = func() time.Time { return clock }

	w.RegisterComponent("dispatcher", 10*time.Second)

	w.CheckAll()
	assert.True(t, w.IsHealthy("dispatcher"))
	_, reported := rep.get("dispatcher")
	assert.False(t, reported, "never-started components are not judged")

	w.Heartbeat("dispatcher")
	clock = clock.Add(5 * time.Second)
	w.CheckAll()
	assert.True(t, w.IsHealthy("dispatcher"))

	clock = clock.Add(6 * time.Second)
	w.CheckAll()
	assert.False(t, w.IsHealthy("dispatcher"))
	healthy, _ := rep.get("dispatcher")
	assert.False(t, healthy)

	w.Heartbeat("dispatcher")
	w.CheckAll()
	assert.True(t, w.IsHealthy("dispatcher"))
	healthy, _ = rep.get("dispatcher")
	assert.True(t, healthy)
}

func TestWatchdog_Probe(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	var last time.Time
	w := NewWatchdog(time.Second, nil)
	w.now = func() time.Time { return clock }
	w.RegisterProbe("gateway", time.Minute, func() time.Time { return last })

	w.CheckAll()
	assert.True(t, w.IsHealthy("gateway"))

	last = clock
	clock = clock.Add(2 * time.Minute)
	w.CheckAll()
	assert.False(t, w.IsHealthy("gateway"))

	last = clock
	w.CheckAll()
	assert.True(t, w.IsHealthy("gateway"))

	assert.Equal(t, map[string]bool{"gateway": true}, w.GetStatus())
	assert.False(t, w.IsHealthy("unknown"))
}

func TestWatchdog_StartStop(t *testing.T) {
	rep := &recordingReporter{}
	w := NewWatchdog(5*time.Millisecond, rep)
	w.RegisterProbe("gateway", time.Minute, time.Now)

	w.Start(context.Background())
	w.Start(context.Background())

	assert.Eventually(t, func() bool {
		healthy, ok := rep.get("gateway")
		return ok && healthy
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
}
