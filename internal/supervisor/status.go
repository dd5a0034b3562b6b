package supervisor

import (
	"fmt"
	"io"
	"sync"

	"github.com/elcapo/elcapo/internal/events"
)

// StatusPrinter writes one human-readable line per lifecycle event.
type StatusPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStatusPrinter creates a printer writing to w.
func NewStatusPrinter(w io.Writer) *StatusPrinter {
	return &StatusPrinter{w: w}
}

// Subscribe registers the printer on bus.
func (sp *StatusPrinter) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.ProcessStarted, func(e events.Event) {
		sp.printf("Started: %s pid: %s\n", e.Data["path"], e.Data["pid"])
	})
	bus.Subscribe(events.ProcessFinished, func(e events.Event) {
		sp.printf("FINISHED pid:%s %s\n", e.Data["pid"], e.Data["status"])
	})
	bus.Subscribe(events.ProcessRestarted, func(e events.Event) {
		sp.printf("REStarted: %s pid:%s try:%s\n", e.Data["path"], e.Data["pid"], e.Data["attempt"])
	})
	bus.Subscribe(events.ProcessSpawnFailed, func(e events.Event) {
		sp.printf("Spawn failed: %s: %s\n", e.Data["path"], e.Data["error"])
	})
	bus.Subscribe(events.ProcessExhausted, func(e events.Event) {
		sp.printf("GAVE UP: %s after %s tries\n", e.Data["path"], e.Data["attempt"])
	})
	bus.Subscribe(events.SupervisorLiveCount, func(e events.Event) {
		sp.printf("Running processes: %s\n", e.Data["count"])
	})
}

func (sp *StatusPrinter) printf(format string, args ...any) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	fmt.Fprintf(sp.w, format, args...)
}
