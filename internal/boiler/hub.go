// Package boiler implements hub-mode boiler control: aggregating calls for
// heat from remote valve units with the local valve state, and holding the
// boiler on for a minimum period to avoid short-cycling.
package boiler

import (
	"sync"
	"time"

	"github.com/sweeney/trv-controller/internal/store"
)

// Valve positions below this do not count as a remote call for heat.
const DefaultMinReallyOpenPC = 10

// Cap on the minutes-since-last-call counter; beyond this the exact figure
// no longer matters.
const maxNoCallM = 0xffff

// Hub turns remote and local calls for heat into a single boiler demand.
// The minimum-on time is persisted; zero (the unset default) leaves hub
// mode off entirely so a plain valve unit ignores remote traffic.
type Hub struct {
	mu sync.Mutex

	st store.Store

	// MinReallyOpenPC is the remote valve position threshold for a call
	// to count.
	MinReallyOpenPC uint8

	heard      bool
	countdownM uint8
	noCallM    uint32

	lastCallers map[string]time.Time
	now         func() time.Time
}

// NewHub returns a Hub backed by st.
func NewHub(st store.Store) *Hub {
	return &Hub{
		st:              st,
		MinReallyOpenPC: DefaultMinReallyOpenPC,
		lastCallers:     make(map[string]time.Time),
		now:             time.Now,
	}
}

// MinBoilerOnMins returns the minimum boiler on (and off) period. The byte
// is stored inverted so a factory-fresh (unset) store reads as 0, hub off.
func (h *Hub) MinBoilerOnMins() uint8 {
	return ^h.st.ReadByte(store.AddrMinBoilerOnInv)
}

// SetMinBoilerOnMins persists the minimum on-period; 0 disables hub mode.
func (h *Hub) SetMinBoilerOnMins(m uint8) {
	h.st.UpdateByte(store.AddrMinBoilerOnInv, ^m)
}

// Enabled reports whether this unit is acting as a boiler hub.
func (h *Hub) Enabled() bool { return h.MinBoilerOnMins() > 0 }

// RemoteCallForHeat records a heat request heard from a remote valve unit.
// Requests below the really-open threshold, and all requests while hub mode
// is off, are ignored.
func (h *Hub) RemoteCallForHeat(nodeID string, percentOpen uint8) {
	if !h.Enabled() || percentOpen < h.MinReallyOpenPC {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heard = true
	h.lastCallers[nodeID] = h.now()
}

// Tick advances the hub by one minute and returns whether the boiler should
// run: on (and held on for the minimum period) when any remote valve called
// for heat recently, or when the local valve is passing water.
func (h *Hub) Tick(localValveReallyOpen bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.heard {
		h.heard = false
		h.countdownM = h.MinBoilerOnMins()
		h.noCallM = 0
	} else {
		if h.countdownM > 0 {
			h.countdownM--
		}
		if h.noCallM < maxNoCallM {
			h.noCallM++
		}
	}

	return h.countdownM > 0 || localValveReallyOpen
}

// BoilerOnFromRemote reports whether remote demand alone is holding the
// boiler on.
func (h *Hub) BoilerOnFromRemote() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countdownM > 0
}

// MinutesSinceLastCall returns how long since any remote call was heard.
func (h *Hub) MinutesSinceLastCall() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.noCallM
}

// Callers returns a copy of the remote units heard from and when, for the
// status page.
func (h *Hub) Callers() map[string]time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]time.Time, len(h.lastCallers))
	for id, t := range h.lastCallers {
		out[id] = t
	}
	return out
}
