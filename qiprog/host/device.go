package host

import (
	"context"

	"github.com/qiprog/qiprog/internal/qplog"
	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/cursor"
)

// Device is one open QiProg programmer: a Driver plus the address-cursor
// and leftover-buffer state spec.md §4.6 requires, and the validation the
// command marshaller applies before any call reaches the wire (spec.md
// §4.4, "Arguments are rejected before wire contact where knowable").
type Device struct {
	ctx  *Context
	desc DeviceDesc
	drv  qiprog.Driver
	cur  *cursor.Cursor
	log  *qplog.Logger
}

// Desc returns the device's discovery-time descriptor.
func (d *Device) Desc() DeviceDesc { return d.desc }

// Window reports the device's current declared address window and cursors.
func (d *Device) Window() qiprog.AddressWindow { return d.cur.Window() }

// Close tears the device down and removes it from its Context's registry
// (spec.md §4.3, "dev_close").
func (d *Device) Close(ctx context.Context) error {
	d.ctx.closeOne(d)
	return d.drv.Close(ctx)
}

// Capabilities returns the device's capability record. Valid in any state.
func (d *Device) Capabilities(ctx context.Context) (qiprog.Capabilities, error) {
	return d.drv.Capabilities(ctx)
}

// SetBus selects the electrical bus used to talk to the attached chip.
// bus must be non-zero (spec.md §4.4).
func (d *Device) SetBus(ctx context.Context, bus qiprog.BusKind) error {
	if bus == 0 {
		return qiprog.ArgumentError("set_bus: bus mask must be non-zero")
	}
	return d.drv.SetBus(ctx, bus)
}

// SetClock requests a bus clock of khz kilohertz and returns the clock the
// device actually settled on.
func (d *Device) SetClock(ctx context.Context, khz uint32) (uint32, error) {
	return d.drv.SetClock(ctx, khz)
}

// ReadChipID returns up to qiprog.MaxChipIDRecords chip-identification
// records.
func (d *Device) ReadChipID(ctx context.Context) ([]qiprog.ChipID, error) {
	return d.drv.ReadChipID(ctx)
}

// SetAddress declares the chip-address window for subsequent bulk and
// direct I/O. It always goes through the device's cursor so the cursor's
// bookkeeping never diverges from the wire state (spec.md §4.6, "obsolete-
// buffer discard").
func (d *Device) SetAddress(ctx context.Context, start, end uint32) error {
	return d.cur.SetAddress(ctx, start, end)
}

// SetEraseSize configures the erase-block layout of the chip at chipIdx.
// At most qiprog.MaxEraseEntries entries are accepted (spec.md §4.4).
func (d *Device) SetEraseSize(ctx context.Context, chipIdx uint8, entries []qiprog.EraseSizeEntry) error {
	if len(entries) > qiprog.MaxEraseEntries {
		return qiprog.ArgumentError(
			"set_erase_size: %d entries exceeds the %d-entry control-body cap",
			len(entries), qiprog.MaxEraseEntries)
	}
	return d.drv.SetEraseSize(ctx, chipIdx, entries)
}

// SetEraseCommand configures the erase command sequence of the chip at
// chipIdx.
func (d *Device) SetEraseCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	return d.drv.SetEraseCommand(ctx, chipIdx, cmd)
}

// SetWriteCommand configures the write command sequence of the chip at
// chipIdx.
func (d *Device) SetWriteCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	return d.drv.SetWriteCommand(ctx, chipIdx, cmd)
}

// SetChipSize declares the size in bytes of the chip at chipIdx.
func (d *Device) SetChipSize(ctx context.Context, chipIdx uint8, size uint32) error {
	return d.drv.SetChipSize(ctx, chipIdx, size)
}

// SetSPITiming configures SPI bus timing.
func (d *Device) SetSPITiming(ctx context.Context, tpuUS, tcesNS uint16) error {
	return d.drv.SetSPITiming(ctx, tpuUS, tcesNS)
}

// SetVDD sets (or, if millivolts is 0, restores) the chip supply voltage.
func (d *Device) SetVDD(ctx context.Context, millivolts uint16, chipIdx uint8) error {
	return d.drv.SetVDD(ctx, millivolts, chipIdx)
}

// Read8/Read16/Read32 read a single datum at addr, bypassing the bulk
// cursor entirely (spec.md §6).
func (d *Device) Read8(ctx context.Context, addr uint32) (uint8, error)   { return d.drv.Read8(ctx, addr) }
func (d *Device) Read16(ctx context.Context, addr uint32) (uint16, error) { return d.drv.Read16(ctx, addr) }
func (d *Device) Read32(ctx context.Context, addr uint32) (uint32, error) { return d.drv.Read32(ctx, addr) }

// Write8/Write16/Write32 write a single datum at addr.
func (d *Device) Write8(ctx context.Context, addr uint32, val uint8) error {
	return d.drv.Write8(ctx, addr, val)
}
func (d *Device) Write16(ctx context.Context, addr uint32, val uint16) error {
	return d.drv.Write16(ctx, addr, val)
}
func (d *Device) Write32(ctx context.Context, addr uint32, val uint32) error {
	return d.drv.Write32(ctx, addr, val)
}

// Read delivers len(dest) bytes starting at the chip address where,
// applying the resumable/misaligned-read algorithm of spec.md §4.6 and the
// short-circuit set_address optimization of spec.md §4.4.
func (d *Device) Read(ctx context.Context, where uint32, dest []byte) (int, error) {
	return d.cur.Read(ctx, where, dest)
}

// Write sends len(src) bytes to the chip starting at where, applying the
// same cursor-aware set_address elision on the write side.
func (d *Device) Write(ctx context.Context, where uint32, src []byte) (int, error) {
	return d.cur.Write(ctx, where, src)
}
