// Package device declares the capability the PMA/MMR layer requires of any
// memory-mapped peripheral. A device owns a claimed range of physical
// addresses; the PMA map dispatches word- or double-word-aligned accesses
// within that range to the device instead of treating the bytes as plain
// memory-mapped-register storage.
package device

import "fmt"

// Device is implemented by a memory-mapped peripheral. Read and Write are
// called with a width of 1, 2, 4, or 8 bytes and an address that has already
// been validated as belonging to the device's claimed range. Implementations
// must be safe for concurrent use: a device may run background goroutines
// (e.g. polling external input) alongside the hart's single-threaded
// execution path.
type Device interface {
	// Read returns the value at addr, right-justified in the returned
	// word. width is the access width in bytes.
	Read(addr uint64, width int) (uint64, error)

	// Write stores value at addr. Only the low width*8 bits of value are
	// meaningful.
	Write(addr uint64, width int, value uint64) error

	// Name identifies the device for logging and error messages.
	Name() string
}

// ErrUnmapped is returned when an address falls outside a device's claimed
// range.
var ErrUnmapped = fmt.Errorf("device: address not claimed")

// ErrBadWidth is returned when a device does not support the requested
// access width.
var ErrBadWidth = fmt.Errorf("device: unsupported access width")
