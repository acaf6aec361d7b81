package gousbtransport

import (
	"context"

	"github.com/qiprog/qiprog/internal/leu"
	"github.com/qiprog/qiprog/qiprog"
)

// Capabilities issues GET_CAPABILITIES (spec.md §6).
func (t *Transport) Capabilities(ctx context.Context) (qiprog.Capabilities, error) {
	buf, err := t.control(ctx, qiprog.OpGetCapabilities, 0, 0, nil, qiprog.CapabilitiesSize)
	if err != nil {
		return qiprog.Capabilities{}, err
	}
	return qiprog.UnmarshalCapabilities(buf)
}

// SetBus issues SET_BUS, splitting the bus bitmask across field_a/field_b
// like any other u32 (spec.md §4.4, §6).
func (t *Transport) SetBus(ctx context.Context, bus qiprog.BusKind) error {
	a, b := qiprog.PackAddress(uint32(bus))
	_, err := t.control(ctx, qiprog.OpSetBus, a, b, nil, 0)
	return err
}

// SetClock issues SET_CLOCK and returns the actual clock the device
// settled on (spec.md §6).
func (t *Transport) SetClock(ctx context.Context, khz uint32) (uint32, error) {
	a, b := qiprog.PackAddress(khz)
	buf, err := t.control(ctx, qiprog.OpSetClock, a, b, nil, 4)
	if err != nil {
		return 0, err
	}
	return leu.ReadU32(buf, 0), nil
}

// ReadChipID issues READ_DEVICE_ID (spec.md §6).
func (t *Transport) ReadChipID(ctx context.Context) ([]qiprog.ChipID, error) {
	buf, err := t.control(ctx, qiprog.OpReadDeviceID, 0, 0, nil, qiprog.ChipIDArraySize)
	if err != nil {
		return nil, err
	}
	return qiprog.UnmarshalChipIDs(buf)
}

// SetAddress issues SET_ADDRESS (spec.md §6). qiprog/cursor is responsible
// for calling this only when the declared window actually needs to change.
func (t *Transport) SetAddress(ctx context.Context, start, end uint32) error {
	body := qiprog.MarshalAddressWindow(start, end)
	_, err := t.control(ctx, qiprog.OpSetAddress, 0, 0, body, 0)
	return err
}

// SetEraseSize issues SET_ERASE_SIZE; chip_idx travels in field_b (spec.md
// §4.4, §6).
func (t *Transport) SetEraseSize(ctx context.Context, chipIdx uint8, entries []qiprog.EraseSizeEntry) error {
	body, err := qiprog.MarshalEraseSizeEntries(entries)
	if err != nil {
		return err
	}
	_, err = t.control(ctx, qiprog.OpSetEraseSize, 0, uint16(chipIdx), body, 0)
	return err
}

// SetEraseCommand issues SET_ERASE_COMMAND.
func (t *Transport) SetEraseCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	_, err := t.control(ctx, qiprog.OpSetEraseCommand, 0, uint16(chipIdx), qiprog.MarshalCommandSpec(cmd), 0)
	return err
}

// SetWriteCommand issues SET_WRITE_COMMAND.
func (t *Transport) SetWriteCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	_, err := t.control(ctx, qiprog.OpSetWriteCommand, 0, uint16(chipIdx), qiprog.MarshalCommandSpec(cmd), 0)
	return err
}

// SetChipSize issues SET_CHIP_SIZE.
func (t *Transport) SetChipSize(ctx context.Context, chipIdx uint8, size uint32) error {
	body := make([]byte, 4)
	leu.WriteU32(size, body, 0)
	_, err := t.control(ctx, qiprog.OpSetChipSize, 0, uint16(chipIdx), body, 0)
	return err
}

// SetSPITiming issues SET_SPI_TIMING: tpu_us in field_a, tces_ns in field_b
// (spec.md §6 — note, unlike every other command, neither half is a split
// u32; each is its own independent u16).
func (t *Transport) SetSPITiming(ctx context.Context, tpuUS, tcesNS uint16) error {
	_, err := t.control(ctx, qiprog.OpSetSPITiming, tpuUS, tcesNS, nil, 0)
	return err
}

// SetVDD issues SET_VDD: millivolts in field_a, chip_idx (0 or 1) in
// field_b (spec.md §6).
func (t *Transport) SetVDD(ctx context.Context, millivolts uint16, chipIdx uint8) error {
	_, err := t.control(ctx, qiprog.OpSetVDD, millivolts, uint16(chipIdx), nil, 0)
	return err
}

// Read8 issues READ8.
func (t *Transport) Read8(ctx context.Context, addr uint32) (uint8, error) {
	a, b := qiprog.PackAddress(addr)
	buf, err := t.control(ctx, qiprog.OpRead8, a, b, nil, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Read16 issues READ16.
func (t *Transport) Read16(ctx context.Context, addr uint32) (uint16, error) {
	a, b := qiprog.PackAddress(addr)
	buf, err := t.control(ctx, qiprog.OpRead16, a, b, nil, 2)
	if err != nil {
		return 0, err
	}
	return leu.ReadU16(buf, 0), nil
}

// Read32 issues READ32.
func (t *Transport) Read32(ctx context.Context, addr uint32) (uint32, error) {
	a, b := qiprog.PackAddress(addr)
	buf, err := t.control(ctx, qiprog.OpRead32, a, b, nil, 4)
	if err != nil {
		return 0, err
	}
	return leu.ReadU32(buf, 0), nil
}

// Write8 issues WRITE8.
func (t *Transport) Write8(ctx context.Context, addr uint32, val uint8) error {
	a, b := qiprog.PackAddress(addr)
	_, err := t.control(ctx, qiprog.OpWrite8, a, b, []byte{val}, 0)
	return err
}

// Write16 issues WRITE16.
func (t *Transport) Write16(ctx context.Context, addr uint32, val uint16) error {
	a, b := qiprog.PackAddress(addr)
	body := make([]byte, 2)
	leu.WriteU16(val, body, 0)
	_, err := t.control(ctx, qiprog.OpWrite16, a, b, body, 0)
	return err
}

// Write32 issues WRITE32.
func (t *Transport) Write32(ctx context.Context, addr uint32, val uint32) error {
	a, b := qiprog.PackAddress(addr)
	body := make([]byte, 4)
	leu.WriteU32(val, body, 0)
	_, err := t.control(ctx, qiprog.OpWrite32, a, b, body, 0)
	return err
}
