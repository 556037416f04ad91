// Package status provides a thread-safe status tracker for the controller
// daemon. It is designed to be read by HTTP handlers and the periodic
// stats publisher.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker     string
	HTTPPort   string
	StorePath  string
	HubEnabled bool
}

// Valve is the modelled valve state for display.
type Valve struct {
	Mode           string // FROST, WARM or BAKE
	TargetC        uint8
	TempC16        int16
	PercentOpen    uint8
	CallingForHeat bool
	ReallyOpen     bool
	Filtering      bool
	CumulativeMove uint16
}

// Room is the sensed room state for display.
type Room struct {
	OccupancyPC  uint8
	VacancyHours uint32
	RoomLit      bool
	DarkMinutes  int
	RHPC         uint8
	RHValid      bool
	SupplyMV     int // 0 when no supply sensor is fitted.
}

// Hub is the boiler-hub state for display; only meaningful when hub mode
// is enabled.
type Hub struct {
	BoilerOn          bool
	MinsSinceLastCall uint32
}

// Snapshot is a point-in-time view of daemon state. It is a value type,
// safe to use after the lock is released.
type Snapshot struct {
	NodeID        string
	Valve         Valve
	Room          Room
	Hub           Hub
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, node ID and config.
func NewTracker(startTime time.Time, nodeID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			NodeID:    nodeID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the valve, room and hub state.
// Called from the control loop on every tick.
func (t *Tracker) Update(valve Valve, room Room, hub Hub) {
	t.mu.Lock()
	t.snap.Valve = valve
	t.snap.Room = room
	t.snap.Hub = hub
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
