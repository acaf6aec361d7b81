// Package memchip is a minimal in-memory flash-chip simulator implementing
// qiprog/firmware's ChipDriver vtable. It gives the firmware demarshaller a
// concrete, testable consumer without any real hardware bus underneath it
// (spec.md §1's Non-goals explicitly exclude chip timing and
// autodetection; memchip provides neither — it is a byte array with
// bookkeeping, not a bus model).
package memchip

import (
	"github.com/qiprog/qiprog/qiprog"
)

// Chip is an in-memory flash chip: a flat byte array plus the bits of
// state the QiProg command set lets a host configure (bus, clock, erase
// layout, chip size, SPI timing, Vdd). Reads and writes past the end of
// the backing memory (the size given to New) are rejected with an
// argument error; a size declared later through SetChipSize does not
// change that limit.
type Chip struct {
	mem []byte

	caps qiprog.Capabilities
	ids  []qiprog.ChipID

	bus        qiprog.BusKind
	clockKHz   uint32
	eraseSize  map[uint8][]qiprog.EraseSizeEntry
	eraseCmd   map[uint8]qiprog.CommandSpec
	writeCmd   map[uint8]qiprog.CommandSpec
	chipSize   map[uint8]uint32
	tpuUS      uint16
	tcesNS     uint16
	vddMV      uint16
	vddChipIdx uint8
}

// New returns a Chip of the given size in bytes, reporting caps and ids to
// GET_CAPABILITIES/READ_DEVICE_ID. The chip's memory starts zeroed.
func New(size int, caps qiprog.Capabilities, ids []qiprog.ChipID) *Chip {
	return &Chip{
		mem:       make([]byte, size),
		caps:      caps,
		ids:       ids,
		eraseSize: make(map[uint8][]qiprog.EraseSizeEntry),
		eraseCmd:  make(map[uint8]qiprog.CommandSpec),
		writeCmd:  make(map[uint8]qiprog.CommandSpec),
		chipSize:  make(map[uint8]uint32),
	}
}

// Bytes exposes the chip's backing memory directly, for tests that want to
// seed content or inspect the result of a write without going through the
// QiProg command set.
func (c *Chip) Bytes() []byte { return c.mem }

func (c *Chip) checkAddr(addr uint32, width int) error {
	if int(addr)+width > len(c.mem) {
		return qiprog.ArgumentError(
			"chip address %#x+%d exceeds simulated chip size %d", addr, width, len(c.mem))
	}
	return nil
}

// Capabilities returns the chip's fixed capability record.
func (c *Chip) Capabilities() qiprog.Capabilities { return c.caps }

// SetBus records the selected bus; memchip has no electrical bus to
// actually switch.
func (c *Chip) SetBus(bus qiprog.BusKind) error {
	if bus&c.caps.BusMaster == 0 {
		return qiprog.ArgumentError("bus %s not supported by this chip (supports %s)", bus, c.caps.BusMaster)
	}
	c.bus = bus
	return nil
}

// SetClock records the requested clock and reports it back unchanged;
// memchip has no real bus timing to negotiate.
func (c *Chip) SetClock(khz uint32) (uint32, error) {
	c.clockKHz = khz
	return khz, nil
}

// ReadChipID returns the fixed chip-identification records memchip was
// constructed with.
func (c *Chip) ReadChipID() []qiprog.ChipID { return c.ids }

// SetEraseSize records the erase-block layout for chipIdx.
func (c *Chip) SetEraseSize(chipIdx uint8, entries []qiprog.EraseSizeEntry) error {
	c.eraseSize[chipIdx] = append([]qiprog.EraseSizeEntry(nil), entries...)
	return nil
}

// SetEraseCommand records the erase command sequence for chipIdx.
func (c *Chip) SetEraseCommand(chipIdx uint8, cmd qiprog.CommandSpec) error {
	c.eraseCmd[chipIdx] = cmd
	return nil
}

// SetWriteCommand records the write command sequence for chipIdx.
func (c *Chip) SetWriteCommand(chipIdx uint8, cmd qiprog.CommandSpec) error {
	c.writeCmd[chipIdx] = cmd
	return nil
}

// SetChipSize records the declared size of the chip at chipIdx. It does
// not resize memchip's own backing buffer; the declared size is bookkeeping
// a real host/device pair exchanges so the host knows how far it may
// address, independent of what memchip happens to simulate underneath.
func (c *Chip) SetChipSize(chipIdx uint8, size uint32) error {
	c.chipSize[chipIdx] = size
	return nil
}

// SetSPITiming records SPI timing parameters.
func (c *Chip) SetSPITiming(tpuUS, tcesNS uint16) error {
	c.tpuUS, c.tcesNS = tpuUS, tcesNS
	return nil
}

// SetVDD records the requested supply voltage.
func (c *Chip) SetVDD(millivolts uint16, chipIdx uint8) error {
	c.vddMV, c.vddChipIdx = millivolts, chipIdx
	return nil
}

// Read8 reads one byte at addr.
func (c *Chip) Read8(addr uint32) (uint8, error) {
	if err := c.checkAddr(addr, 1); err != nil {
		return 0, err
	}
	return c.mem[addr], nil
}

// Read16 reads two little-endian bytes at addr.
func (c *Chip) Read16(addr uint32) (uint16, error) {
	if err := c.checkAddr(addr, 2); err != nil {
		return 0, err
	}
	return uint16(c.mem[addr]) | uint16(c.mem[addr+1])<<8, nil
}

// Read32 reads four little-endian bytes at addr.
func (c *Chip) Read32(addr uint32) (uint32, error) {
	if err := c.checkAddr(addr, 4); err != nil {
		return 0, err
	}
	return uint32(c.mem[addr]) | uint32(c.mem[addr+1])<<8 |
		uint32(c.mem[addr+2])<<16 | uint32(c.mem[addr+3])<<24, nil
}

// Write8 writes one byte at addr.
func (c *Chip) Write8(addr uint32, val uint8) error {
	if err := c.checkAddr(addr, 1); err != nil {
		return err
	}
	c.mem[addr] = val
	return nil
}

// Write16 writes two little-endian bytes at addr.
func (c *Chip) Write16(addr uint32, val uint16) error {
	if err := c.checkAddr(addr, 2); err != nil {
		return err
	}
	c.mem[addr] = byte(val)
	c.mem[addr+1] = byte(val >> 8)
	return nil
}

// Write32 writes four little-endian bytes at addr.
func (c *Chip) Write32(addr uint32, val uint32) error {
	if err := c.checkAddr(addr, 4); err != nil {
		return err
	}
	c.mem[addr] = byte(val)
	c.mem[addr+1] = byte(val >> 8)
	c.mem[addr+2] = byte(val >> 16)
	c.mem[addr+3] = byte(val >> 24)
	return nil
}

// ReadAt serves the bulk streaming read path: one byte at chip address
// addr (firmware.ChipDriver).
func (c *Chip) ReadAt(addr uint32) (byte, error) {
	if err := c.checkAddr(addr, 1); err != nil {
		return 0, err
	}
	return c.mem[addr], nil
}

// WriteAt serves the bulk streaming write path: one byte at chip address
// addr.
func (c *Chip) WriteAt(addr uint32, b byte) error {
	if err := c.checkAddr(addr, 1); err != nil {
		return err
	}
	c.mem[addr] = b
	return nil
}
