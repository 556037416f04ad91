package mqtt

import (
	"errors"
	"testing"
	"time"
)

func TestFormatValvePayload(t *testing.T) {
	event := ValveEvent{
		Timestamp:      time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC),
		NodeID:         "ab12cd34",
		TargetC:        18,
		TempC16:        275, // 17.1875C
		PercentOpen:    45,
		CallingForHeat: true,
	}

	payload, err := FormatValvePayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"trv":{"timestamp":"2026-01-15T08:30:00Z","node":"ab12cd34","target_c":18,"temp_c16":275,"percent_open":45,"calling_for_heat":true}}`
	if string(payload) != expected {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestValvePayloadRoundTrip(t *testing.T) {
	event := ValveEvent{
		Timestamp:      time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC),
		NodeID:         "ab12cd34",
		TargetC:        6,
		TempC16:        -32, // -2C: sub-zero rooms must survive the trip.
		PercentOpen:    0,
		CallingForHeat: false,
	}

	payload, err := FormatValvePayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := ParseValvePayload(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != event {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, event)
	}
}

func TestParseValvePayloadRejectsGarbage(t *testing.T) {
	if _, err := ParseValvePayload([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-01-15T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC),
		Event:     "STARTUP",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-01-15T08:30:00Z","event":"STARTUP"}}`
	if string(payload) != expected {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"anything":"goes"}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisherRecordsEvents(t *testing.T) {
	fake := NewFakePublisher()

	valve := ValveEvent{NodeID: "ab12cd34", PercentOpen: 30, CallingForHeat: true}
	if err := fake.PublishValve(valve); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fake.PublishStats([]byte(`{"s":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fake.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.ValveEvents) != 1 || fake.ValveEvents[0].NodeID != "ab12cd34" {
		t.Errorf("expected 1 recorded valve event, got %+v", fake.ValveEvents)
	}
	if len(fake.StatsPayloads) != 1 {
		t.Errorf("expected 1 recorded stats payload, got %d", len(fake.StatsPayloads))
	}
	if len(fake.SystemEvents) != 1 || fake.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("expected 1 recorded system event, got %+v", fake.SystemEvents)
	}

	if err := fake.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.Closed {
		t.Error("expected publisher marked closed")
	}
}

func TestFakePublisherInjectedErrors(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker down")

	if err := fake.PublishValve(ValveEvent{}); err == nil {
		t.Error("expected injected publish error")
	}
	if len(fake.ValveEvents) != 0 {
		t.Error("failed publish should not be recorded")
	}
}
