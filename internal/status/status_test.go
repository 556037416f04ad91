package status

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testConfig(hub bool) Config {
	return Config{
		Broker:     "tcp://localhost:1883",
		HTTPPort:   ":8080",
		StorePath:  "/var/lib/trv-controller/store.bin",
		HubEnabled: hub,
	}
}

func TestTrackerUpdateAndSnapshot(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	tracker := NewTracker(start, "ab12cd34", testConfig(false))

	tracker.Update(
		Valve{Mode: "WARM", TargetC: 18, TempC16: 275, PercentOpen: 45, CallingForHeat: true, ReallyOpen: true},
		Room{OccupancyPC: 80, RoomLit: true},
		Hub{},
	)
	tracker.SetMQTTConnected(true)

	snap := tracker.Snapshot()
	if snap.NodeID != "ab12cd34" {
		t.Errorf("expected node ID preserved, got %q", snap.NodeID)
	}
	if snap.Valve.Mode != "WARM" || snap.Valve.PercentOpen != 45 {
		t.Errorf("unexpected valve state: %+v", snap.Valve)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTT connected")
	}
	if snap.Uptime() < time.Hour || snap.Uptime() > time.Hour+time.Minute {
		t.Errorf("unexpected uptime %v", snap.Uptime())
	}
}

func TestFormatJSONStructure(t *testing.T) {
	tracker := NewTracker(time.Now(), "ab12cd34", testConfig(false))
	tracker.Update(
		Valve{Mode: "WARM", TargetC: 18, TempC16: 288, PercentOpen: 100, CallingForHeat: true},
		Room{OccupancyPC: 50},
		Hub{},
	)

	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(tracker.Snapshot()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Node != "ab12cd34" {
		t.Errorf("expected node in output, got %q", decoded.Status.Node)
	}
	if decoded.Status.Valve.TempC != "18.00" {
		t.Errorf("expected formatted temperature 18.00, got %q", decoded.Status.Valve.TempC)
	}
	if decoded.Status.Event != "" {
		t.Errorf("web status should carry no event, got %q", decoded.Status.Event)
	}
}

func TestFormatJSONOmitsHubWhenDisabled(t *testing.T) {
	tracker := NewTracker(time.Now(), "n", testConfig(false))
	out := string(FormatJSON(tracker.Snapshot()))
	if strings.Contains(out, `"hub"`) {
		t.Error("hub section should be omitted when hub mode is off")
	}

	hubbed := NewTracker(time.Now(), "n", testConfig(true))
	hubbed.Update(Valve{}, Room{}, Hub{BoilerOn: true, MinsSinceLastCall: 3})
	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(hubbed.Snapshot()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Hub == nil || !decoded.Status.Hub.BoilerOn {
		t.Errorf("expected hub section with boiler on, got %+v", decoded.Status.Hub)
	}
}

func TestFormatJSONOmitsInvalidHumidity(t *testing.T) {
	tracker := NewTracker(time.Now(), "n", testConfig(false))
	tracker.Update(Valve{}, Room{RHPC: 55, RHValid: false}, Hub{})
	if strings.Contains(string(FormatJSON(tracker.Snapshot())), `"rh_pc"`) {
		t.Error("stale humidity should be omitted")
	}

	tracker.Update(Valve{}, Room{RHPC: 55, RHValid: true}, Hub{})
	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(tracker.Snapshot()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Room.RHPC == nil || *decoded.Status.Room.RHPC != 55 {
		t.Errorf("expected humidity 55, got %+v", decoded.Status.Room.RHPC)
	}
}

func TestFormatJSONOmitsMissingSupplyVoltage(t *testing.T) {
	tracker := NewTracker(time.Now(), "n", testConfig(false))
	if strings.Contains(string(FormatJSON(tracker.Snapshot())), `"supply_mv"`) {
		t.Error("supply voltage should be omitted when no sensor is fitted")
	}

	tracker.Update(Valve{}, Room{SupplyMV: 2800}, Hub{})
	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(tracker.Snapshot()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Room.SupplyMV != 2800 {
		t.Errorf("expected supply 2800mV, got %d", decoded.Status.Room.SupplyMV)
	}
}

func TestUnknownModePlaceholder(t *testing.T) {
	tracker := NewTracker(time.Now(), "n", testConfig(false))
	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(tracker.Snapshot()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Valve.Mode != "UNKNOWN" {
		t.Errorf("expected UNKNOWN before first update, got %q", decoded.Status.Valve.Mode)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tracker := NewTracker(time.Now(), "ab12cd34", testConfig(false))
	out := FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", "SIGTERM")

	var decoded StatusJSON
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status.Event != "SHUTDOWN" || decoded.Status.Reason != "SIGTERM" {
		t.Errorf("expected event/reason, got %q/%q", decoded.Status.Event, decoded.Status.Reason)
	}
	// Event payloads travel over MQTT and stay compact.
	if strings.Contains(string(out), "\n") {
		t.Error("event payload should not be indented")
	}
}
