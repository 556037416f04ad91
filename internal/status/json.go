package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Node          string     `json:"node"`
	Valve         ValveJSON  `json:"valve"`
	Room          RoomJSON   `json:"room"`
	Hub           *HubJSON   `json:"hub,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// ValveJSON is the JSON representation of the modelled valve.
type ValveJSON struct {
	Mode           string `json:"mode"`
	TargetC        uint8  `json:"target_c"`
	TempC          string `json:"temp_c"`
	TempC16        int16  `json:"temp_c16"`
	PercentOpen    uint8  `json:"percent_open"`
	CallingForHeat bool   `json:"calling_for_heat"`
	ReallyOpen     bool   `json:"really_open"`
	Filtering      bool   `json:"filtering"`
	CumulativeMove uint16 `json:"cumulative_movement_pc"`
}

// RoomJSON is the JSON representation of the sensed room state.
type RoomJSON struct {
	OccupancyPC  uint8  `json:"occupancy_pc"`
	VacancyHours uint32 `json:"vacancy_hours"`
	RoomLit      bool   `json:"room_lit"`
	DarkMinutes  int    `json:"dark_minutes"`
	RHPC         *uint8 `json:"rh_pc,omitempty"`
	SupplyMV     int    `json:"supply_mv,omitempty"`
}

// HubJSON is the JSON representation of the boiler hub state.
type HubJSON struct {
	BoilerOn          bool   `json:"boiler_on"`
	MinsSinceLastCall uint32 `json:"mins_since_last_call"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker     string `json:"broker"`
	HTTPPort   string `json:"http_port"`
	StorePath  string `json:"store_path"`
	HubEnabled bool   `json:"hub_enabled"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := snap.Valve.Mode
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Node: snap.NodeID,
		Valve: ValveJSON{
			Mode:           mode,
			TargetC:        snap.Valve.TargetC,
			TempC:          fmt.Sprintf("%.2f", float64(snap.Valve.TempC16)/16),
			TempC16:        snap.Valve.TempC16,
			PercentOpen:    snap.Valve.PercentOpen,
			CallingForHeat: snap.Valve.CallingForHeat,
			ReallyOpen:     snap.Valve.ReallyOpen,
			Filtering:      snap.Valve.Filtering,
			CumulativeMove: snap.Valve.CumulativeMove,
		},
		Room: RoomJSON{
			OccupancyPC:  snap.Room.OccupancyPC,
			VacancyHours: snap.Room.VacancyHours,
			RoomLit:      snap.Room.RoomLit,
			DarkMinutes:  snap.Room.DarkMinutes,
			SupplyMV:     snap.Room.SupplyMV,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Broker:     snap.Config.Broker,
			HTTPPort:   snap.Config.HTTPPort,
			StorePath:  snap.Config.StorePath,
			HubEnabled: snap.Config.HubEnabled,
		},
	}

	if snap.Room.RHValid {
		rh := snap.Room.RHPC
		inner.Room.RHPC = &rh
	}
	if snap.Config.HubEnabled {
		inner.Hub = &HubJSON{
			BoilerOn:          snap.Hub.BoilerOn,
			MinsSinceLastCall: snap.Hub.MinsSinceLastCall,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
