// Package firmware is the in-firmware half of the QiProg engine: the
// command demarshaller that decodes wire requests into chip operations
// (spec.md §4.5), and the bulk-IN ring that streams chip data without a
// real USB wire underneath it (spec.md §4.8). It dispatches every chip
// operation through ChipDriver, the hardware-bus boundary spec.md §1
// deliberately leaves "out of scope... specified only by interface."
package firmware

import "github.com/qiprog/qiprog/qiprog"

// ChipDriver is the hardware-bus vtable a Translator dispatches into. It is
// the device-side analogue of qiprog.Driver: one method per protocol
// command, but operating directly on the attached flash chip rather than
// over a wire. qiprog/firmware/memchip provides an in-memory
// implementation for testing and simulation.
type ChipDriver interface {
	Capabilities() qiprog.Capabilities
	SetBus(bus qiprog.BusKind) error
	SetClock(khz uint32) (actualKhz uint32, err error)
	ReadChipID() []qiprog.ChipID
	SetEraseSize(chipIdx uint8, entries []qiprog.EraseSizeEntry) error
	SetEraseCommand(chipIdx uint8, cmd qiprog.CommandSpec) error
	SetWriteCommand(chipIdx uint8, cmd qiprog.CommandSpec) error
	SetChipSize(chipIdx uint8, size uint32) error
	SetSPITiming(tpuUS, tcesNS uint16) error
	SetVDD(millivolts uint16, chipIdx uint8) error

	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write8(addr uint32, val uint8) error
	Write16(addr uint32, val uint16) error
	Write32(addr uint32, val uint32) error

	// ReadAt and WriteAt serve the bulk streaming paths: one chip byte at
	// chip address addr, in or out.
	ReadAt(addr uint32) (byte, error)
	WriteAt(addr uint32, b byte) error
}
