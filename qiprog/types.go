package qiprog

import "github.com/qiprog/qiprog/internal/leu"

// Capabilities is the fixed 30-meaningful-byte (32 bytes on the wire, see
// spec.md §6) record a programmer reports at power-on. It is read-only to
// hosts.
type Capabilities struct {
	InstructionSet InstructionSet
	BusMaster      BusKind
	MaxDirectData  uint32
	// Voltages lists supported Vdd values in millivolts. The list
	// terminates at the first zero entry or after ten entries
	// (spec.md §3); this slice never holds trailing zeros.
	Voltages []uint16
}

// MarshalCapabilities encodes caps into the fixed 32-byte wire record of
// spec.md §6 (GET_CAPABILITIES body).
func MarshalCapabilities(caps Capabilities) []byte {
	buf := make([]byte, CapabilitiesSize)
	leu.WriteU16(uint16(caps.InstructionSet), buf, 0)
	leu.WriteU32(uint32(caps.BusMaster), buf, 2)
	leu.WriteU32(caps.MaxDirectData, buf, 6)

	off := 10
	for i := 0; i < 10; i++ {
		var v uint16
		if i < len(caps.Voltages) {
			v = caps.Voltages[i]
		}
		leu.WriteU16(v, buf, off)
		off += 2
	}
	return buf
}

// UnmarshalCapabilities decodes the fixed 32-byte GET_CAPABILITIES body of
// spec.md §6. The voltage list stops at the first zero entry, per spec.md
// §3.
func UnmarshalCapabilities(buf []byte) (Capabilities, error) {
	if len(buf) < CapabilitiesSize {
		return Capabilities{}, ArgumentError(
			"capabilities record too short: got %d bytes, want %d",
			len(buf), CapabilitiesSize)
	}

	caps := Capabilities{
		InstructionSet: InstructionSet(leu.ReadU16(buf, 0)),
		BusMaster:      BusKind(leu.ReadU32(buf, 2)),
		MaxDirectData:  leu.ReadU32(buf, 6),
	}

	off := 10
	for i := 0; i < 10; i++ {
		v := leu.ReadU16(buf, off)
		off += 2
		if v == 0 {
			break
		}
		caps.Voltages = append(caps.Voltages, v)
	}

	return caps, nil
}

// ChipID is one chip-identification record (spec.md §3).
type ChipID struct {
	Method   IDMethod
	VendorID uint16
	DeviceID uint32
}

// MarshalChipIDs encodes up to 9 ChipID records into the fixed 63-byte
// READ_DEVICE_ID body of spec.md §6, terminated by a zero-method record (or
// truncated at 9 entries).
func MarshalChipIDs(ids []ChipID) []byte {
	buf := make([]byte, ChipIDArraySize)
	off := 0
	for i := 0; i < MaxChipIDRecords; i++ {
		var id ChipID
		if i < len(ids) {
			id = ids[i]
		}
		buf[off] = byte(id.Method)
		leu.WriteU16(id.VendorID, buf, off+1)
		leu.WriteU32(id.DeviceID, buf, off+3)
		off += ChipIDRecordSize

		if id.Method == IDMethodNone {
			break
		}
	}
	return buf
}

// UnmarshalChipIDs decodes the READ_DEVICE_ID body, stopping at the first
// record with Method == IDMethodNone (spec.md §3, "Chip-ID termination").
func UnmarshalChipIDs(buf []byte) ([]ChipID, error) {
	if len(buf) < ChipIDRecordSize {
		return nil, ArgumentError("chip-id record too short: got %d bytes", len(buf))
	}

	var ids []ChipID
	off := 0
	for i := 0; i < MaxChipIDRecords && off+ChipIDRecordSize <= len(buf); i++ {
		id := ChipID{
			Method:   IDMethod(buf[off]),
			VendorID: leu.ReadU16(buf, off+1),
			DeviceID: leu.ReadU32(buf, off+3),
		}
		off += ChipIDRecordSize

		if id.Method == IDMethodNone {
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddressWindow is the per-device chip-address range a host has declared
// for the next bulk operation, plus the read/write cursors into it
// (spec.md §3). End is inclusive.
type AddressWindow struct {
	Start, End    uint32
	PRead, PWrite uint32
}

// MarshalAddressWindow encodes the SET_ADDRESS body of spec.md §6:
// 8 bytes, u32 start followed by u32 end.
func MarshalAddressWindow(start, end uint32) []byte {
	buf := make([]byte, SetAddressSize)
	leu.WriteU32(start, buf, 0)
	leu.WriteU32(end, buf, 4)
	return buf
}

// UnmarshalAddressWindow decodes the SET_ADDRESS body.
func UnmarshalAddressWindow(buf []byte) (start, end uint32, err error) {
	if len(buf) < SetAddressSize {
		return 0, 0, ArgumentError(
			"set_address body too short: got %d bytes, want %d",
			len(buf), SetAddressSize)
	}
	return leu.ReadU32(buf, 0), leu.ReadU32(buf, 4), nil
}

// EraseSizeEntry is one {kind, size} pair of a SET_ERASE_SIZE body
// (spec.md §4.4, §6).
type EraseSizeEntry struct {
	Kind uint8
	Size uint32
}

// MarshalEraseSizeEntries encodes up to MaxEraseEntries {kind:u8, size:u32}
// entries (spec.md §6).
func MarshalEraseSizeEntries(entries []EraseSizeEntry) ([]byte, error) {
	if len(entries) > MaxEraseEntries {
		return nil, ArgumentError(
			"too many erase-size entries: got %d, max %d",
			len(entries), MaxEraseEntries)
	}

	buf := make([]byte, len(entries)*EraseEntrySize)
	off := 0
	for _, e := range entries {
		buf[off] = e.Kind
		leu.WriteU32(e.Size, buf, off+1)
		off += EraseEntrySize
	}
	return buf, nil
}

// UnmarshalEraseSizeEntries decodes a SET_ERASE_SIZE body.
func UnmarshalEraseSizeEntries(buf []byte) ([]EraseSizeEntry, error) {
	if len(buf)%EraseEntrySize != 0 {
		return nil, ArgumentError(
			"malformed erase-size body: %d bytes is not a multiple of %d",
			len(buf), EraseEntrySize)
	}
	n := len(buf) / EraseEntrySize
	if n > MaxEraseEntries {
		return nil, ArgumentError(
			"too many erase-size entries: got %d, max %d", n, MaxEraseEntries)
	}

	entries := make([]EraseSizeEntry, n)
	off := 0
	for i := range entries {
		entries[i] = EraseSizeEntry{
			Kind: buf[off],
			Size: leu.ReadU32(buf, off+1),
		}
		off += EraseEntrySize
	}
	return entries, nil
}

// CommandSpec is the {cmd, subcmd, flags} body shared by SET_ERASE_COMMAND
// and SET_WRITE_COMMAND (spec.md §6): 4 bytes, u8 cmd, u8 subcmd, u16 flags.
type CommandSpec struct {
	Cmd, SubCmd uint8
	Flags       uint16
}

// MarshalCommandSpec encodes a CommandSpec body.
func MarshalCommandSpec(c CommandSpec) []byte {
	buf := make([]byte, 4)
	buf[0] = c.Cmd
	buf[1] = c.SubCmd
	leu.WriteU16(c.Flags, buf, 2)
	return buf
}

// UnmarshalCommandSpec decodes a CommandSpec body.
func UnmarshalCommandSpec(buf []byte) (CommandSpec, error) {
	if len(buf) < 4 {
		return CommandSpec{}, ArgumentError(
			"command body too short: got %d bytes, want 4", len(buf))
	}
	return CommandSpec{
		Cmd:    buf[0],
		SubCmd: buf[1],
		Flags:  leu.ReadU16(buf, 2),
	}, nil
}

// USBID is a USB vendor/product ID pair used to match candidate devices
// during a scan (spec.md §4.3, §6).
type USBID struct {
	Vendor, Product uint16
}

// DefaultUSBID is QiProg's default vendor/product ID (spec.md §6); the
// registry accepts caller-supplied overrides in addition to this default.
var DefaultUSBID = USBID{Vendor: 0x1d50, Product: 0x6076}
