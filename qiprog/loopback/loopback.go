// Package loopback is QiProg's in-process "in-firmware translator" backend
// (spec.md §2, §4.2: "Backends: USB master (host) and USB device
// translator (firmware)"). Driver marshals every qiprog.Driver call into a
// firmware.Request exactly as qiprog/host/gousbtransport would for a real
// USB wire, then dispatches it straight into a qiprog/firmware.Translator
// with no USB underneath — so the whole marshal -> demarshal -> cursor ->
// bulk-pipeline path is exercisable and testable without attached
// hardware, the way spec.md §2 treats the in-firmware translator as a
// first-class backend rather than a test-only shortcut.
package loopback

import (
	"context"

	"github.com/qiprog/qiprog/internal/leu"
	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/firmware"
	"github.com/qiprog/qiprog/qiprog/host"
)

// Driver is a qiprog.Driver backed by an in-process firmware.Translator.
type Driver struct {
	tr          *firmware.Translator
	epIn, epOut int
	opened      bool
}

// New returns a Driver dispatching into chip, simulating bulk IN/OUT
// endpoints of epIn/epOut max-packet bytes. The translator's bulk-IN ring
// streams in epIn-sized packets (spec.md §4.8); the bulk-OUT path has no
// ring and uses epOut only to report the endpoint size to callers.
func New(chip firmware.ChipDriver, epIn, epOut int) *Driver {
	return &Driver{tr: firmware.NewTranslator(chip, epIn), epIn: epIn, epOut: epOut}
}

// Open transitions the loopback device to OPEN (spec.md §4.3). There is no
// hardware to claim.
func (d *Driver) Open(ctx context.Context) error {
	d.opened = true
	return nil
}

// Close transitions the loopback device back to CLOSED.
func (d *Driver) Close(ctx context.Context) error {
	d.opened = false
	return nil
}

// EndpointSizes reports the simulated bulk endpoint packet sizes.
func (d *Driver) EndpointSizes() (in, out int) { return d.epIn, d.epOut }

func (d *Driver) dispatch(op qiprog.Opcode, fieldA, fieldB uint16, body []byte) ([]byte, error) {
	if len(body) > qiprog.MaxControlBody {
		return nil, qiprog.ArgumentError(
			"%s: body of %d bytes exceeds the %d-byte control-transfer cap",
			op, len(body), qiprog.MaxControlBody)
	}
	return d.tr.Dispatch(firmware.Request{Op: op, FieldA: fieldA, FieldB: fieldB, Body: body})
}

// Capabilities issues GET_CAPABILITIES.
func (d *Driver) Capabilities(ctx context.Context) (qiprog.Capabilities, error) {
	body, err := d.dispatch(qiprog.OpGetCapabilities, 0, 0, nil)
	if err != nil {
		return qiprog.Capabilities{}, err
	}
	return qiprog.UnmarshalCapabilities(body)
}

// SetBus issues SET_BUS.
func (d *Driver) SetBus(ctx context.Context, bus qiprog.BusKind) error {
	a, b := qiprog.PackAddress(uint32(bus))
	_, err := d.dispatch(qiprog.OpSetBus, a, b, nil)
	return err
}

// SetClock issues SET_CLOCK.
func (d *Driver) SetClock(ctx context.Context, khz uint32) (uint32, error) {
	a, b := qiprog.PackAddress(khz)
	body, err := d.dispatch(qiprog.OpSetClock, a, b, nil)
	if err != nil {
		return 0, err
	}
	return leu.ReadU32(body, 0), nil
}

// ReadChipID issues READ_DEVICE_ID.
func (d *Driver) ReadChipID(ctx context.Context) ([]qiprog.ChipID, error) {
	body, err := d.dispatch(qiprog.OpReadDeviceID, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return qiprog.UnmarshalChipIDs(body)
}

// SetAddress issues SET_ADDRESS.
func (d *Driver) SetAddress(ctx context.Context, start, end uint32) error {
	_, err := d.dispatch(qiprog.OpSetAddress, 0, 0, qiprog.MarshalAddressWindow(start, end))
	return err
}

// SetEraseSize issues SET_ERASE_SIZE.
func (d *Driver) SetEraseSize(ctx context.Context, chipIdx uint8, entries []qiprog.EraseSizeEntry) error {
	body, err := qiprog.MarshalEraseSizeEntries(entries)
	if err != nil {
		return err
	}
	_, err = d.dispatch(qiprog.OpSetEraseSize, 0, uint16(chipIdx), body)
	return err
}

// SetEraseCommand issues SET_ERASE_COMMAND.
func (d *Driver) SetEraseCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	_, err := d.dispatch(qiprog.OpSetEraseCommand, 0, uint16(chipIdx), qiprog.MarshalCommandSpec(cmd))
	return err
}

// SetWriteCommand issues SET_WRITE_COMMAND.
func (d *Driver) SetWriteCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	_, err := d.dispatch(qiprog.OpSetWriteCommand, 0, uint16(chipIdx), qiprog.MarshalCommandSpec(cmd))
	return err
}

// SetChipSize issues SET_CHIP_SIZE.
func (d *Driver) SetChipSize(ctx context.Context, chipIdx uint8, size uint32) error {
	body := leu.WriteU32(size, make([]byte, 4), 0)
	_, err := d.dispatch(qiprog.OpSetChipSize, 0, uint16(chipIdx), body)
	return err
}

// SetSPITiming issues SET_SPI_TIMING.
func (d *Driver) SetSPITiming(ctx context.Context, tpuUS, tcesNS uint16) error {
	_, err := d.dispatch(qiprog.OpSetSPITiming, tpuUS, tcesNS, nil)
	return err
}

// SetVDD issues SET_VDD.
func (d *Driver) SetVDD(ctx context.Context, millivolts uint16, chipIdx uint8) error {
	_, err := d.dispatch(qiprog.OpSetVDD, millivolts, uint16(chipIdx), nil)
	return err
}

// Read8 issues READ8.
func (d *Driver) Read8(ctx context.Context, addr uint32) (uint8, error) {
	a, b := qiprog.PackAddress(addr)
	body, err := d.dispatch(qiprog.OpRead8, a, b, nil)
	if err != nil {
		return 0, err
	}
	return body[0], nil
}

// Read16 issues READ16.
func (d *Driver) Read16(ctx context.Context, addr uint32) (uint16, error) {
	a, b := qiprog.PackAddress(addr)
	body, err := d.dispatch(qiprog.OpRead16, a, b, nil)
	if err != nil {
		return 0, err
	}
	return leu.ReadU16(body, 0), nil
}

// Read32 issues READ32.
func (d *Driver) Read32(ctx context.Context, addr uint32) (uint32, error) {
	a, b := qiprog.PackAddress(addr)
	body, err := d.dispatch(qiprog.OpRead32, a, b, nil)
	if err != nil {
		return 0, err
	}
	return leu.ReadU32(body, 0), nil
}

// Write8 issues WRITE8.
func (d *Driver) Write8(ctx context.Context, addr uint32, val uint8) error {
	a, b := qiprog.PackAddress(addr)
	_, err := d.dispatch(qiprog.OpWrite8, a, b, []byte{val})
	return err
}

// Write16 issues WRITE16.
func (d *Driver) Write16(ctx context.Context, addr uint32, val uint16) error {
	a, b := qiprog.PackAddress(addr)
	body := leu.WriteU16(val, make([]byte, 2), 0)
	_, err := d.dispatch(qiprog.OpWrite16, a, b, body)
	return err
}

// Write32 issues WRITE32.
func (d *Driver) Write32(ctx context.Context, addr uint32, val uint32) error {
	a, b := qiprog.PackAddress(addr)
	body := leu.WriteU32(val, make([]byte, 4), 0)
	_, err := d.dispatch(qiprog.OpWrite32, a, b, body)
	return err
}

// BulkRead drives the translator's bulk-IN ring directly into dest
// (spec.md §4.7/§4.8 with no wire in between).
func (d *Driver) BulkRead(ctx context.Context, dest []byte) (int, error) {
	return d.tr.BulkIn(dest)
}

// BulkWrite drives the translator's bulk-OUT path directly from src.
func (d *Driver) BulkWrite(ctx context.Context, src []byte) (int, error) {
	return d.tr.BulkOut(src)
}

// fixedDesc is the one DeviceDesc a Scanner ever reports.
var fixedDesc = host.DeviceDesc{USBID: qiprog.DefaultUSBID, Bus: 0, Address: 1}

// Scanner is a host.Scanner exposing exactly one loopback Driver, built by
// NewFunc on Open. It lets qiprog/host.Context and cmd/qiprogctl drive a
// loopback device through the same Scan/Open calling convention real
// hardware uses.
type Scanner struct {
	NewFunc func() qiprog.Driver
}

// NewScanner returns a Scanner that builds a fresh Driver over chip each
// time a caller opens the device, with the given simulated endpoint sizes.
func NewScanner(chip firmware.ChipDriver, epIn, epOut int) *Scanner {
	return &Scanner{NewFunc: func() qiprog.Driver { return New(chip, epIn, epOut) }}
}

// Scan reports the single fixed loopback device if ids matches its
// USBID (or is empty), an empty list otherwise.
func (s *Scanner) Scan(ctx context.Context, ids []qiprog.USBID) (host.DeviceDescList, error) {
	var list host.DeviceDescList
	if len(ids) == 0 {
		list.Add(fixedDesc)
		return list, nil
	}
	for _, id := range ids {
		if id == fixedDesc.USBID {
			list.Add(fixedDesc)
			break
		}
	}
	return list, nil
}

// Open returns a fresh Driver for the loopback device. desc is not
// inspected beyond matching Scan's contract; there is only one device.
func (s *Scanner) Open(ctx context.Context, desc host.DeviceDesc) (qiprog.Driver, error) {
	return s.NewFunc(), nil
}
