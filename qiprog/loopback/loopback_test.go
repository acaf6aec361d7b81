package loopback

import (
	"context"
	"testing"

	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/firmware/memchip"
	"github.com/qiprog/qiprog/qiprog/host"
)

func newTestContext(chipSize, epIn, epOut int) (*host.Context, *memchip.Chip) {
	chip := memchip.New(chipSize, qiprog.Capabilities{
		InstructionSet: 1,
		BusMaster:      qiprog.BusSPI,
		Voltages:       []uint16{3300, 1800},
	}, []qiprog.ChipID{{Method: qiprog.IDMethodSPIRES, VendorID: 0xEF, DeviceID: 0x4018}})
	scanner := NewScanner(chip, epIn, epOut)
	return host.NewContext(scanner, nil), chip
}

func TestEndToEndScanOpenCapabilities(t *testing.T) {
	ctx := context.Background()
	hctx, _ := newTestContext(1024, 8, 8)

	descs, err := hctx.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("Scan found %d devices, want 1", len(descs))
	}

	dev, err := hctx.Open(ctx, descs[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close(ctx)

	caps, err := dev.Capabilities(ctx)
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if caps.BusMaster != qiprog.BusSPI || len(caps.Voltages) != 2 || caps.Voltages[0] != 3300 {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
}

func TestEndToEndReadWriteThroughCursor(t *testing.T) {
	ctx := context.Background()
	hctx, chip := newTestContext(1024, 8, 8)

	descs, _ := hctx.Scan(ctx)
	dev, err := hctx.Open(ctx, descs[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close(ctx)

	if err := dev.SetBus(ctx, qiprog.BusSPI); err != nil {
		t.Fatalf("SetBus: %v", err)
	}

	for i := range chip.Bytes() {
		chip.Bytes()[i] = byte(i)
	}

	dest := make([]byte, 100)
	n, err := dev.Read(ctx, 0, dest)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 100 {
		t.Fatalf("Read delivered %d bytes, want 100", n)
	}
	for i, b := range dest {
		if b != byte(i) {
			t.Fatalf("dest[%d] = %d, want %d", i, b, i)
		}
	}

	// Split read across two calls must equal a single read of the
	// combined range (spec.md §8, "bulk-read idempotence under split").
	dest2 := make([]byte, 100)
	n1, err := dev.Read(ctx, 200, dest2[:40])
	if err != nil {
		t.Fatalf("Read part 1: %v", err)
	}
	n2, err := dev.Read(ctx, 200+40, dest2[40:])
	if err != nil {
		t.Fatalf("Read part 2: %v", err)
	}
	if n1+n2 != 100 {
		t.Fatalf("split read delivered %d bytes, want 100", n1+n2)
	}
	for i, b := range dest2 {
		want := byte((200 + i) % 256)
		if b != want {
			t.Fatalf("dest2[%d] = %d, want %d", i, b, want)
		}
	}

	src := []byte{0x11, 0x22, 0x33, 0x44}
	if _, err := dev.Write(ctx, 500, src); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for i, want := range src {
		if chip.Bytes()[500+i] != want {
			t.Fatalf("chip[%d] = %#x, want %#x", 500+i, chip.Bytes()[500+i], want)
		}
	}
}

func TestEndToEndReadChipID(t *testing.T) {
	ctx := context.Background()
	hctx, _ := newTestContext(64, 8, 8)
	descs, _ := hctx.Scan(ctx)
	dev, err := hctx.Open(ctx, descs[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close(ctx)

	ids, err := dev.ReadChipID(ctx)
	if err != nil {
		t.Fatalf("ReadChipID: %v", err)
	}
	if len(ids) != 1 || ids[0].DeviceID != 0x4018 {
		t.Fatalf("ReadChipID = %+v, unexpected", ids)
	}
}
