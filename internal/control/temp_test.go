package control

import (
	"testing"

	"github.com/sweeney/trv-controller/internal/store"
)

func TestTargetDefaults(t *testing.T) {
	tc := NewTempControl(DefaultTunables(), store.NewMemStore())

	if got := tc.FrostC(); got != 6 {
		t.Errorf("expected default frost 6, got %d", got)
	}
	if got := tc.WarmC(); got != 18 {
		t.Errorf("expected default warm 18, got %d", got)
	}
}

func TestTargetPersistence(t *testing.T) {
	st := store.NewMemStore()
	tc := NewTempControl(DefaultTunables(), st)

	if err := tc.SetWarmC(21); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tc.SetFrostC(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh instance over the same store sees the saved values.
	tc2 := NewTempControl(DefaultTunables(), st)
	if got := tc2.WarmC(); got != 21 {
		t.Errorf("expected warm 21, got %d", got)
	}
	if got := tc2.FrostC(); got != 8 {
		t.Errorf("expected frost 8, got %d", got)
	}
}

func TestTargetRangeEnforced(t *testing.T) {
	tc := NewTempControl(DefaultTunables(), store.NewMemStore())

	if err := tc.SetWarmC(40); err == nil {
		t.Error("expected error for warm target above max")
	}
	if err := tc.SetFrostC(2); err == nil {
		t.Error("expected error for frost target below min")
	}
	if got := tc.WarmC(); got != 18 {
		t.Errorf("rejected set must not change target, got %d", got)
	}
}

func TestTargetOrderingEnforced(t *testing.T) {
	tc := NewTempControl(DefaultTunables(), store.NewMemStore())

	// Defaults are frost 6, warm 18.
	if err := tc.SetFrostC(19); err == nil {
		t.Error("expected error for frost above warm")
	}
	if err := tc.SetWarmC(5); err == nil {
		t.Error("expected error for warm below frost")
	}
	if err := tc.SetWarmC(6); err != nil {
		t.Errorf("warm equal to frost should be allowed: %v", err)
	}
}

func TestCorruptStoredTargetFallsBack(t *testing.T) {
	st := store.NewMemStore()
	st.UpdateByte(store.AddrWarmC, 200)

	tc := NewTempControl(DefaultTunables(), st)
	if got := tc.WarmC(); got != 18 {
		t.Errorf("expected fallback to default on corrupt value, got %d", got)
	}
}

func TestEcoBias(t *testing.T) {
	tc := NewTempControl(DefaultTunables(), store.NewMemStore())

	if !tc.HasEcoBias() {
		t.Error("default warm 18 should give an eco bias")
	}

	if err := tc.SetWarmC(21); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.HasEcoBias() {
		t.Error("warm 21 should give a comfort bias")
	}

	if !tc.IsEcoTemperature(17) {
		t.Error("17C should be an eco temperature")
	}
	if !tc.IsComfortTemperature(21) {
		t.Error("21C should be a comfort temperature")
	}
	if tc.IsEcoTemperature(18) || tc.IsComfortTemperature(18) {
		t.Error("18C should be neither eco nor comfort")
	}
}
