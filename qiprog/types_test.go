package qiprog

import "testing"

func TestCapabilitiesRoundTrip(t *testing.T) {
	caps := Capabilities{
		InstructionSet: 0x0003,
		BusMaster:      BusSPI | BusLPC,
		MaxDirectData:  4096,
		Voltages:       []uint16{3300, 1800},
	}
	buf := MarshalCapabilities(caps)
	if len(buf) != CapabilitiesSize {
		t.Fatalf("MarshalCapabilities produced %d bytes, want %d", len(buf), CapabilitiesSize)
	}
	got, err := UnmarshalCapabilities(buf)
	if err != nil {
		t.Fatalf("UnmarshalCapabilities: %v", err)
	}
	if got.InstructionSet != caps.InstructionSet || got.BusMaster != caps.BusMaster ||
		got.MaxDirectData != caps.MaxDirectData || len(got.Voltages) != len(caps.Voltages) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, caps)
	}
	for i := range caps.Voltages {
		if got.Voltages[i] != caps.Voltages[i] {
			t.Errorf("voltage[%d] = %d, want %d", i, got.Voltages[i], caps.Voltages[i])
		}
	}
}

func TestCapabilitiesVoltagesStopAtZero(t *testing.T) {
	buf := MarshalCapabilities(Capabilities{Voltages: []uint16{3300}})
	got, err := UnmarshalCapabilities(buf)
	if err != nil {
		t.Fatalf("UnmarshalCapabilities: %v", err)
	}
	if len(got.Voltages) != 1 || got.Voltages[0] != 3300 {
		t.Fatalf("Voltages = %v, want [3300]", got.Voltages)
	}
}

func TestChipIDTermination(t *testing.T) {
	ids := []ChipID{
		{Method: IDMethodJEDECISA, VendorID: 0x01, DeviceID: 0xAB},
		{Method: IDMethodSPIRES, VendorID: 0xEF, DeviceID: 0x1234},
	}
	buf := MarshalChipIDs(ids)
	if len(buf) != ChipIDArraySize {
		t.Fatalf("MarshalChipIDs produced %d bytes, want %d", len(buf), ChipIDArraySize)
	}
	got, err := UnmarshalChipIDs(buf)
	if err != nil {
		t.Fatalf("UnmarshalChipIDs: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("got %d chip ids, want %d", len(got), len(ids))
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("chip id[%d] = %+v, want %+v", i, got[i], ids[i])
		}
	}
}

func TestChipIDAllNoneYieldsEmpty(t *testing.T) {
	buf := MarshalChipIDs(nil)
	got, err := UnmarshalChipIDs(buf)
	if err != nil {
		t.Fatalf("UnmarshalChipIDs: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d chip ids, want 0", len(got))
	}
}

func TestAddressWindowRoundTrip(t *testing.T) {
	buf := MarshalAddressWindow(0x1000, 0x2FFF)
	start, end, err := UnmarshalAddressWindow(buf)
	if err != nil {
		t.Fatalf("UnmarshalAddressWindow: %v", err)
	}
	if start != 0x1000 || end != 0x2FFF {
		t.Fatalf("UnmarshalAddressWindow = (%#x, %#x), want (0x1000, 0x2fff)", start, end)
	}
}

func TestEraseSizeEntriesRoundTrip(t *testing.T) {
	entries := []EraseSizeEntry{{Kind: 1, Size: 4096}, {Kind: 2, Size: 65536}}
	buf, err := MarshalEraseSizeEntries(entries)
	if err != nil {
		t.Fatalf("MarshalEraseSizeEntries: %v", err)
	}
	got, err := UnmarshalEraseSizeEntries(buf)
	if err != nil {
		t.Fatalf("UnmarshalEraseSizeEntries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry[%d] = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestEraseSizeEntriesTooMany(t *testing.T) {
	entries := make([]EraseSizeEntry, MaxEraseEntries+1)
	if _, err := MarshalEraseSizeEntries(entries); KindOf(err) != ErrArgument {
		t.Fatalf("MarshalEraseSizeEntries over limit: got kind %v, want ErrArgument", KindOf(err))
	}
}

func TestCommandSpecRoundTrip(t *testing.T) {
	cmd := CommandSpec{Cmd: 0x06, SubCmd: 0x00, Flags: 0x0001}
	buf := MarshalCommandSpec(cmd)
	got, err := UnmarshalCommandSpec(buf)
	if err != nil {
		t.Fatalf("UnmarshalCommandSpec: %v", err)
	}
	if got != cmd {
		t.Fatalf("UnmarshalCommandSpec = %+v, want %+v", got, cmd)
	}
}
