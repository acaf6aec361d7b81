package memchip

import (
	"testing"

	"github.com/qiprog/qiprog/qiprog"
)

func newTestChip() *Chip {
	return New(256, qiprog.Capabilities{
		BusMaster: qiprog.BusSPI,
		Voltages:  []uint16{3300},
	}, []qiprog.ChipID{{Method: qiprog.IDMethodSPIRES, VendorID: 0xEF, DeviceID: 0x4018}})
}

func TestReadWrite8(t *testing.T) {
	c := newTestChip()
	if err := c.Write8(10, 0x42); err != nil {
		t.Fatalf("Write8: %v", err)
	}
	v, err := c.Read8(10)
	if err != nil {
		t.Fatalf("Read8: %v", err)
	}
	if v != 0x42 {
		t.Fatalf("Read8 = %#x, want 0x42", v)
	}
}

func TestReadWrite32RoundTrip(t *testing.T) {
	c := newTestChip()
	if err := c.Write32(4, 0xDEADBEEF); err != nil {
		t.Fatalf("Write32: %v", err)
	}
	v, err := c.Read32(4)
	if err != nil {
		t.Fatalf("Read32: %v", err)
	}
	if v != 0xDEADBEEF {
		t.Fatalf("Read32 = %#x, want 0xDEADBEEF", v)
	}
}

func TestOutOfRangeRejected(t *testing.T) {
	c := newTestChip()
	if _, err := c.Read8(256); err == nil {
		t.Fatal("Read8 past chip size: want error, got nil")
	}
	if err := c.Write32(254, 1); err == nil {
		t.Fatal("Write32 overrunning chip size: want error, got nil")
	}
}

func TestSetBusRejectsUnsupported(t *testing.T) {
	c := newTestChip()
	if err := c.SetBus(qiprog.BusLPC); err == nil {
		t.Fatal("SetBus(BusLPC): want error, chip only supports SPI")
	}
	if err := c.SetBus(qiprog.BusSPI); err != nil {
		t.Fatalf("SetBus(BusSPI): %v", err)
	}
}

func TestReadAtWriteAtBulkPath(t *testing.T) {
	c := newTestChip()
	for i := 0; i < 16; i++ {
		if err := c.WriteAt(uint32(i), byte(i*3)); err != nil {
			t.Fatalf("WriteAt(%d): %v", i, err)
		}
	}
	for i := 0; i < 16; i++ {
		b, err := c.ReadAt(uint32(i))
		if err != nil {
			t.Fatalf("ReadAt(%d): %v", i, err)
		}
		if b != byte(i*3) {
			t.Fatalf("ReadAt(%d) = %d, want %d", i, b, i*3)
		}
	}
}

func TestReadChipIDAndCapabilities(t *testing.T) {
	c := newTestChip()
	ids := c.ReadChipID()
	if len(ids) != 1 || ids[0].Method != qiprog.IDMethodSPIRES || ids[0].DeviceID != 0x4018 {
		t.Fatalf("ReadChipID = %+v, unexpected", ids)
	}
	if c.Capabilities().BusMaster != qiprog.BusSPI {
		t.Fatalf("Capabilities().BusMaster = %s, want SPI", c.Capabilities().BusMaster)
	}
}
