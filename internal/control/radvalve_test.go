package control

import (
	"testing"
	"time"

	"github.com/sweeney/trv-controller/internal/stats"
	"github.com/sweeney/trv-controller/internal/store"
	"github.com/sweeney/trv-controller/internal/valve"
)

type fakeOcc struct {
	occupied bool
	long     bool
	longLong bool
}

func (f *fakeOcc) IsLikelyOccupied() bool   { return f.occupied }
func (f *fakeOcc) IsLikelyUnoccupied() bool { return !f.occupied }
func (f *fakeOcc) LongVacant() bool         { return f.long || f.longLong }
func (f *fakeOcc) LongLongVacant() bool     { return f.longLong }

type fakeAmb struct {
	lit      bool
	darkMins int
}

func (f *fakeAmb) IsRoomLit() bool  { return f.lit }
func (f *fakeAmb) IsRoomDark() bool { return !f.lit }
func (f *fakeAmb) DarkMinutes() int { return f.darkMins }

type fakeSched struct {
	activeNow bool
	soon      bool
}

func (f *fakeSched) WarmActiveNow(int, bool) bool    { return f.activeNow }
func (f *fakeSched) WarmStartingSoon(int, bool) bool { return f.soon }

type fixture struct {
	rv    *RadValve
	temps *TempControl
	occ   *fakeOcc
	amb   *fakeAmb
	sched *fakeSched
	stats *stats.Stats
	st    *store.MemStore
}

func newFixture() *fixture {
	st := store.NewMemStore()
	tun := DefaultTunables()
	temps := NewTempControl(tun, st)
	occ := &fakeOcc{occupied: true}
	amb := &fakeAmb{lit: true}
	sched := &fakeSched{}
	statistics := stats.New(st)
	rv := NewRadValve(RadValveConfig{
		Tunables:    tun,
		ValveParams: valve.DefaultParams(),
		Temps:       temps,
		Store:       st,
		Occupancy:   occ,
		Ambient:     amb,
		Schedule:    sched,
		Stats:       statistics,
		Now: func() time.Time {
			return time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC)
		},
	})
	return &fixture{rv: rv, temps: temps, occ: occ, amb: amb, sched: sched, stats: statistics, st: st}
}

func TestFrostModeTargetsFrost(t *testing.T) {
	f := newFixture()
	f.rv.SetWarmMode(false)

	f.rv.ComputeCallForHeat(15 * 16)

	if got := f.rv.TargetTempC(); got != 6 {
		t.Errorf("expected frost target 6, got %d", got)
	}
}

func TestWarmColdRoomCallsForHeat(t *testing.T) {
	f := newFixture()

	for i := 0; i < 5; i++ {
		f.rv.ComputeCallForHeat(15 * 16)
	}

	if got := f.rv.TargetTempC(); got != 18 {
		t.Errorf("expected warm target 18, got %d", got)
	}
	if !f.rv.IsCallingForHeat() {
		t.Error("expected call for heat in a cold room")
	}
	if f.rv.PercentOpen() < DefaultMinReallyOpenPC {
		t.Errorf("expected valve at least really open, got %d%%", f.rv.PercentOpen())
	}
	if !f.rv.IsReallyOpen() {
		t.Error("expected valve really open")
	}
}

func TestWarmRoomDoesNotCallForHeat(t *testing.T) {
	f := newFixture()

	f.rv.ComputeCallForHeat(21 * 16)

	if f.rv.IsCallingForHeat() {
		t.Error("no call for heat expected above target")
	}
	if f.rv.IsReallyOpen() {
		t.Error("valve should not be really open")
	}
}

func TestBakeRaisesTargetThenExpires(t *testing.T) {
	f := newFixture()
	f.rv.StartBake()

	f.rv.ComputeCallForHeat(17 * 16)
	if got := f.rv.TargetTempC(); got != 23 {
		t.Errorf("expected bake target 18+5=23, got %d", got)
	}
	if !f.rv.InBakeMode() {
		t.Error("expected bake in progress")
	}

	for i := 0; i < 31; i++ {
		f.rv.ComputeCallForHeat(17 * 16)
	}
	if f.rv.InBakeMode() {
		t.Error("expected bake to expire")
	}
	if got := f.rv.TargetTempC(); got != 18 {
		t.Errorf("expected target back at 18 after bake, got %d", got)
	}
}

func TestBakeCancelledOnceRoomIsHotEnough(t *testing.T) {
	f := newFixture()
	f.rv.StartBake()

	// Room already above the boosted target, so no call for heat.
	f.rv.ComputeCallForHeat(25 * 16)

	if f.rv.InBakeMode() {
		t.Error("expected bake to cancel once the room no longer needs heat")
	}
	if got := f.rv.TargetTempC(); got != 23 {
		t.Errorf("expected boosted target 23 on the cancelling tick, got %d", got)
	}

	f.rv.ComputeCallForHeat(25 * 16)
	if got := f.rv.TargetTempC(); got != 18 {
		t.Errorf("expected plain warm target 18 after cancel, got %d", got)
	}
}

func TestBakeTargetCappedAtMax(t *testing.T) {
	f := newFixture()
	if err := f.temps.SetWarmC(33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rv.StartBake()

	f.rv.ComputeCallForHeat(17 * 16)

	if got := f.rv.TargetTempC(); got != 35 {
		t.Errorf("expected bake target capped at 35, got %d", got)
	}
}

func TestDarkRoomGetsDefaultSetback(t *testing.T) {
	f := newFixture()
	f.amb.lit = false
	f.amb.darkMins = 20

	f.rv.ComputeCallForHeat(17 * 16)

	// Occupied, so only the smallest setback applies.
	if got := f.rv.TargetTempC(); got != 17 {
		t.Errorf("expected 18-1=17 with default setback, got %d", got)
	}
}

func TestRecentUserUseSuppressesSetback(t *testing.T) {
	f := newFixture()
	f.amb.lit = false
	f.amb.darkMins = 20
	f.rv.MarkUserControlUse()

	f.rv.ComputeCallForHeat(17 * 16)

	if got := f.rv.TargetTempC(); got != 18 {
		t.Errorf("expected full warm target right after user adjustment, got %d", got)
	}
}

func TestLongLongVacantFullSetback(t *testing.T) {
	f := newFixture()
	f.occ.occupied = false
	f.occ.longLong = true

	f.rv.ComputeCallForHeat(17 * 16)

	if got := f.rv.TargetTempC(); got != 14 {
		t.Errorf("expected 18-4=14 with full setback, got %d", got)
	}
}

func TestSetbackFlooredAtFrost(t *testing.T) {
	f := newFixture()
	if err := f.temps.SetWarmC(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.occ.occupied = false
	f.occ.longLong = true

	f.rv.ComputeCallForHeat(7 * 16)

	if got := f.rv.TargetTempC(); got != 6 {
		t.Errorf("expected setback floored at frost 6, got %d", got)
	}
}

func TestScheduleActiveHoldsWarmWhenDark(t *testing.T) {
	f := newFixture()
	f.amb.lit = false
	f.amb.darkMins = 60
	f.sched.activeNow = true

	f.rv.ComputeCallForHeat(17 * 16)

	if got := f.rv.TargetTempC(); got != 18 {
		t.Errorf("expected schedule to hold full warm target, got %d", got)
	}
}

func TestPreWarmFromFrostMode(t *testing.T) {
	f := newFixture()
	// A comfort-level WARM setting earns pre-warming before a programme.
	if err := f.temps.SetWarmC(21); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rv.SetWarmMode(false)
	f.sched.soon = true

	// Flush the user-interaction window left by the mode change.
	var got uint8
	for i := 0; i < 12; i++ {
		f.rv.ComputeCallForHeat(15 * 16)
		got = f.rv.TargetTempC()
	}

	if got != 20 {
		t.Errorf("expected pre-warm target 21-1=20, got %d", got)
	}
}

func TestShouldBeWarmedAtHour(t *testing.T) {
	f := newFixture()

	if f.rv.ShouldBeWarmedAtHour(7) {
		t.Error("no history: expected false")
	}

	// One recorded warm day fills the whole history window.
	f.stats.RecordWarmMode(7, true)
	if !f.rv.ShouldBeWarmedAtHour(7) {
		t.Error("expected true with warm-mode history at hour")
	}

	f.stats.RecordWarmMode(9, false)
	if f.rv.ShouldBeWarmedAtHour(9) {
		t.Error("expected false with explicit not-warm history")
	}
}

func TestShouldBeWarmedAtHourNeedsRepeatedUse(t *testing.T) {
	f := newFixture()

	// A single warm day against a frost baseline is not a habit.
	f.stats.RecordWarmMode(11, false)
	f.stats.RecordWarmMode(11, true)
	if f.rv.ShouldBeWarmedAtHour(11) {
		t.Error("expected false with only one warm day on record")
	}

	// Warm again a week later: yesterday plus a week ago is a pattern.
	for i := 0; i < 5; i++ {
		f.stats.RecordWarmMode(11, false)
	}
	f.stats.RecordWarmMode(11, true)
	if !f.rv.ShouldBeWarmedAtHour(11) {
		t.Error("expected true with warm yesterday and a week ago")
	}
}

func TestMinReallyOpenPersisted(t *testing.T) {
	f := newFixture()

	if got := f.rv.MinReallyOpenPC(); got != DefaultMinReallyOpenPC {
		t.Errorf("expected default %d, got %d", DefaultMinReallyOpenPC, got)
	}

	f.rv.SetMinReallyOpenPC(25)
	if got := f.rv.MinReallyOpenPC(); got != 25 {
		t.Errorf("expected 25, got %d", got)
	}

	// Out of range resets to default.
	f.rv.SetMinReallyOpenPC(0)
	if got := f.rv.MinReallyOpenPC(); got != DefaultMinReallyOpenPC {
		t.Errorf("expected reset to default, got %d", got)
	}
}
