// Package store provides an EEPROM-style byte store for controller settings
// and statistics. Writes are "smart": a byte is only rewritten when its value
// actually changes, and erasing restores the unset value (0xFF), mirroring the
// low-wear update discipline of the original EEPROM-backed firmware so that
// a persisted image stays bit-compatible with stored history.
package store

// Unset is the value of an erased/never-written byte.
const Unset byte = 0xFF

// Settings addresses within the store image.
const (
	AddrFrostC          uint16 = 0 // FROST target temperature in C, or Unset.
	AddrWarmC           uint16 = 1 // WARM target temperature in C, or Unset.
	AddrMinValvePCOpen  uint16 = 2 // Override for min-%-really-open, or Unset.
	AddrMinBoilerOnInv  uint16 = 3 // Minimum boiler on/off minutes, stored inverted so Unset reads as 0 (hub mode off).
	AddrOverrunCounter  uint16 = 4 // Tick overrun count, stored inverted so Unset reads as 0.
	AddrSchedule0       uint16 = 6 // Program 0 start time in 6-minute units, or Unset.
	AddrSchedule1       uint16 = 7 // Program 1 start time in 6-minute units, or Unset.
	AddrNodeID          uint16 = 8 // 16 bytes of node identity.
	NodeIDLen                  = 16

	// Per-hour statistics sets, 24 bytes each, laid out contiguously.
	// Each "last" set is immediately followed by its "smoothed" set.
	AddrStatsStart uint16 = 32
	StatsSetSize   uint16 = 24

	// Size is the total store image size in bytes.
	Size = 256
)

// Store is a byte-addressed persistent store with low-wear update semantics.
type Store interface {
	// ReadByte returns the byte at addr, or Unset if out of range.
	ReadByte(addr uint16) byte

	// UpdateByte writes value at addr only if it differs from the current
	// content. Returns true if a write actually happened.
	UpdateByte(addr uint16, value byte) bool

	// EraseByte restores addr to Unset. Returns true if an erase was needed.
	EraseByte(addr uint16) bool
}

// MemStore is an in-memory Store, used in tests and on hosts without
// persistent storage configured.
type MemStore struct {
	buf    [Size]byte
	Writes int // Count of actual byte writes (for wear diagnostics).
	Erases int // Count of actual byte erases.
}

// NewMemStore returns a MemStore with every byte unset.
func NewMemStore() *MemStore {
	m := &MemStore{}
	for i := range m.buf {
		m.buf[i] = Unset
	}
	return m
}

// ReadByte returns the byte at addr, or Unset if out of range.
func (m *MemStore) ReadByte(addr uint16) byte {
	if addr >= Size {
		return Unset
	}
	return m.buf[addr]
}

// UpdateByte writes value at addr only if changed.
func (m *MemStore) UpdateByte(addr uint16, value byte) bool {
	if addr >= Size {
		return false
	}
	if m.buf[addr] == value {
		return false
	}
	m.buf[addr] = value
	m.Writes++
	return true
}

// EraseByte restores addr to Unset.
func (m *MemStore) EraseByte(addr uint16) bool {
	if addr >= Size {
		return false
	}
	if m.buf[addr] == Unset {
		return false
	}
	m.buf[addr] = Unset
	m.Erases++
	return true
}
