package pma

import "github.com/rvvsim/rvvsim/internal/device"

// DefineMMR installs a plain value-backed MMR at addr, guarded by the
// Map's configuration lock.
func (m *Map) DefineMMR(addr, mask uint64, size int, attr Pma) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mmr.DefineMMR(addr, mask, size, attr)
}

// BindDevice claims [first, last] for dev.
func (m *Map) BindDevice(first, last uint64, dev device.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mmr.BindDevice(first, last, dev)
}

// ReadMMR performs a width-byte read at addr. ok is false if addr does not
// belong to any configured register or device.
func (m *Map) ReadMMR(addr uint64, width int) (value uint64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.mmr.Read(addr, width)
}

// WriteMMR performs a width-byte write at addr, masked by the owning
// register's write-mask.
func (m *Map) WriteMMR(addr uint64, width int, value uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.mmr.Write(addr, width, value)
}

// PokeMMR writes addr bypassing the write-mask.
func (m *Map) PokeMMR(addr uint64, width int, value uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mmr.Poke(addr, width, value)
}
