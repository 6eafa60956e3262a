package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-guildevents/internal/logging"
)

// HealthReporter receives every health evaluation.
type HealthReporter interface {
	SetComponentHealth(component string, healthy bool)
}

// Probe reports when a component last showed signs of life. A zero time
// means the component has not started yet and is not judged.
type Probe func() time.Time

type Watchdog struct {
	mu            sync.RWMutex
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	reporter      HealthReporter
	running       uint32
	stop          chan struct{}
	now           func() time.Time
}

type ComponentHealth struct {
	Name          string
	LastHeartbeat int64
	IsHealthy     uint32
	Threshold     time.Duration
	probe         Probe
}

func NewWatchdog(checkInterval time.Duration, reporter HealthReporter) *Watchdog {
	return &Watchdog{
		components:    make(map[string]*ComponentHealth),
		checkInterval: checkInterval,
		reporter:      reporter,
		now:           time.Now,
	}
}

// RegisterComponent tracks a component that pushes Heartbeat calls.
func (w *Watchdog) RegisterComponent(name string, threshold time.Duration) {
	w.register(name, threshold, nil)
}

// RegisterProbe tracks a component that is polled on every check.
func (w *Watchdog) RegisterProbe(name string, threshold time.Duration, probe Probe) {
	w.register(name, threshold, probe)
}

func (w *Watchdog) register(name string, threshold time.Duration, probe Probe) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.components[name] = &ComponentHealth{
		Name:      name,
		IsHealthy: 1,
		Threshold: threshold,
		probe:     probe,
	}
}

func (w *Watchdog) Heartbeat(name string) {
	w.mu.RLock()
	comp, exists := w.components[name]
	w.mu.RUnlock()
	if exists {
		atomic.StoreInt64(&comp.LastHeartbeat, w.now().UnixNano())
		atomic.StoreUint32(&comp.IsHealthy, 1)
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	if !atomic.CompareAndSwapUint32(&w.running, 0, 1) {
		return
	}
	w.stop = make(chan struct{})
	go w.monitorLoop(ctx, w.stop)
}

func (w *Watchdog) monitorLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.CheckAll()
		}
	}
}

// CheckAll evaluates every component once.
func (w *Watchdog) CheckAll() {
	w.mu.RLock()
	comps := make([]*ComponentHealth, 0, len(w.components))
	for _, comp := range w.components {
		comps = append(comps, comp)
	}
	w.mu.RUnlock()

	now := w.now().UnixNano()
	for _, comp := range comps {
		if comp.probe != nil {
			if t := comp.probe(); !t.IsZero() {
				atomic.StoreInt64(&comp.LastHeartbeat, t.UnixNano())
			}
		}

		lastBeat := atomic.LoadInt64(&comp.LastHeartbeat)
		if lastBeat == 0 {
			continue
		}

		elapsed := time.Duration(now - lastBeat)
		healthy := elapsed <= comp.Threshold
		was := atomic.SwapUint32(&comp.IsHealthy, boolToUint32(healthy)) == 1
		switch {
		case !healthy && was:
			logging.Error("[WATCHDOG] %s unhealthy (no heartbeat for %v)", comp.Name, elapsed.Round(time.Millisecond))
		case healthy && !was:
			logging.Info("[WATCHDOG] %s recovered", comp.Name)
		}
		if w.reporter != nil {
			w.reporter.SetComponentHealth(comp.Name, healthy)
		}
	}
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (w *Watchdog) IsHealthy(name string) bool {
	w.mu.RLock()
	comp, exists := w.components[name]
	w.mu.RUnlock()
	if exists {
		return atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return false
}

func (w *Watchdog) Stop() {
	if atomic.CompareAndSwapUint32(&w.running, 1, 0) {
		close(w.stop)
	}
}

func (w *Watchdog) GetStatus() map[string]bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return status
}
