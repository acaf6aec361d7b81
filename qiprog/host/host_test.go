package host

import (
	"context"
	"testing"

	"github.com/qiprog/qiprog/qiprog"
)

// stubDriver is a no-op qiprog.Driver sufficient to exercise Context/Device
// plumbing without any real transport.
type stubDriver struct {
	opened bool
	closed bool
	chip   []byte
	epIn   int
	epOut  int
}

func newStubDriver() *stubDriver {
	chip := make([]byte, 256)
	for i := range chip {
		chip[i] = byte(i)
	}
	return &stubDriver{chip: chip, epIn: 8, epOut: 8}
}

func (s *stubDriver) Open(ctx context.Context) error  { s.opened = true; return nil }
func (s *stubDriver) Close(ctx context.Context) error { s.closed = true; return nil }
func (s *stubDriver) Capabilities(ctx context.Context) (qiprog.Capabilities, error) {
	return qiprog.Capabilities{BusMaster: qiprog.BusSPI}, nil
}
func (s *stubDriver) SetBus(ctx context.Context, bus qiprog.BusKind) error { return nil }
func (s *stubDriver) SetClock(ctx context.Context, khz uint32) (uint32, error) {
	return khz, nil
}
func (s *stubDriver) ReadChipID(ctx context.Context) ([]qiprog.ChipID, error) { return nil, nil }
func (s *stubDriver) SetAddress(ctx context.Context, start, end uint32) error { return nil }
func (s *stubDriver) SetEraseSize(ctx context.Context, chipIdx uint8, entries []qiprog.EraseSizeEntry) error {
	return nil
}
func (s *stubDriver) SetEraseCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	return nil
}
func (s *stubDriver) SetWriteCommand(ctx context.Context, chipIdx uint8, cmd qiprog.CommandSpec) error {
	return nil
}
func (s *stubDriver) SetChipSize(ctx context.Context, chipIdx uint8, size uint32) error { return nil }
func (s *stubDriver) SetSPITiming(ctx context.Context, tpuUS, tcesNS uint16) error      { return nil }
func (s *stubDriver) SetVDD(ctx context.Context, millivolts uint16, chipIdx uint8) error {
	return nil
}
func (s *stubDriver) Read8(ctx context.Context, addr uint32) (uint8, error)   { return 0, nil }
func (s *stubDriver) Read16(ctx context.Context, addr uint32) (uint16, error) { return 0, nil }
func (s *stubDriver) Read32(ctx context.Context, addr uint32) (uint32, error) { return 0, nil }
func (s *stubDriver) Write8(ctx context.Context, addr uint32, val uint8) error { return nil }
func (s *stubDriver) Write16(ctx context.Context, addr uint32, val uint16) error {
	return nil
}
func (s *stubDriver) Write32(ctx context.Context, addr uint32, val uint32) error {
	return nil
}
func (s *stubDriver) BulkRead(ctx context.Context, dest []byte) (int, error) {
	copy(dest, s.chip)
	return len(dest), nil
}
func (s *stubDriver) BulkWrite(ctx context.Context, src []byte) (int, error) { return len(src), nil }
func (s *stubDriver) EndpointSizes() (int, int)                              { return s.epIn, s.epOut }

type stubScanner struct {
	devices map[DeviceDesc]*stubDriver
}

func newStubScanner() *stubScanner {
	return &stubScanner{devices: map[DeviceDesc]*stubDriver{}}
}

func (s *stubScanner) add(desc DeviceDesc) *stubDriver {
	drv := newStubDriver()
	s.devices[desc] = drv
	return drv
}

func (s *stubScanner) Scan(ctx context.Context, ids []qiprog.USBID) (DeviceDescList, error) {
	var out DeviceDescList
	for desc := range s.devices {
		out.Add(desc)
	}
	return out, nil
}

func (s *stubScanner) Open(ctx context.Context, desc DeviceDesc) (qiprog.Driver, error) {
	drv, ok := s.devices[desc]
	if !ok {
		return nil, qiprog.ArgumentError("no such device: %s", desc)
	}
	return drv, nil
}

func TestContextOpenAddsToRegistry(t *testing.T) {
	scanner := newStubScanner()
	desc := DeviceDesc{USBID: qiprog.DefaultUSBID, Bus: 1, Address: 2}
	drv := scanner.add(desc)

	cx := NewContext(scanner, nil)
	dev, err := cx.Open(context.Background(), desc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !drv.opened {
		t.Fatalf("Open did not transition the driver to OPEN")
	}
	if len(cx.Devices()) != 1 || cx.Devices()[0] != dev {
		t.Fatalf("Devices() = %v, want [dev]", cx.Devices())
	}

	if err := dev.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !drv.closed {
		t.Fatalf("Close did not close the driver")
	}
	if len(cx.Devices()) != 0 {
		t.Fatalf("Devices() after Close = %v, want empty", cx.Devices())
	}
}

func TestDeviceSetBusRejectsZero(t *testing.T) {
	scanner := newStubScanner()
	desc := DeviceDesc{USBID: qiprog.DefaultUSBID, Bus: 1, Address: 1}
	scanner.add(desc)
	cx := NewContext(scanner, nil)
	dev, err := cx.Open(context.Background(), desc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := dev.SetBus(context.Background(), 0); qiprog.KindOf(err) != qiprog.ErrArgument {
		t.Fatalf("SetBus(0): got kind %v, want ErrArgument", qiprog.KindOf(err))
	}
	if err := dev.SetBus(context.Background(), qiprog.BusSPI); err != nil {
		t.Fatalf("SetBus(BusSPI): %v", err)
	}
}

func TestDeviceSetEraseSizeRejectsTooManyEntries(t *testing.T) {
	scanner := newStubScanner()
	desc := DeviceDesc{USBID: qiprog.DefaultUSBID, Bus: 1, Address: 1}
	scanner.add(desc)
	cx := NewContext(scanner, nil)
	dev, err := cx.Open(context.Background(), desc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entries := make([]qiprog.EraseSizeEntry, qiprog.MaxEraseEntries+1)
	if err := dev.SetEraseSize(context.Background(), 0, entries); qiprog.KindOf(err) != qiprog.ErrArgument {
		t.Fatalf("SetEraseSize over cap: got kind %v, want ErrArgument", qiprog.KindOf(err))
	}
}

func TestDeviceReadUsesCursor(t *testing.T) {
	scanner := newStubScanner()
	desc := DeviceDesc{USBID: qiprog.DefaultUSBID, Bus: 1, Address: 1}
	scanner.add(desc)
	cx := NewContext(scanner, nil)
	dev, err := cx.Open(context.Background(), desc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dest := make([]byte, 8)
	n, err := dev.Read(context.Background(), 0, dest)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 8 {
		t.Fatalf("Read returned %d, want 8", n)
	}
	for i, b := range dest {
		if b != byte(i) {
			t.Errorf("dest[%d] = %d, want %d", i, b, i)
		}
	}
}

func TestDeviceDescListSortedNoDuplicates(t *testing.T) {
	var list DeviceDescList
	a := DeviceDesc{Bus: 2, Address: 1}
	b := DeviceDesc{Bus: 1, Address: 5}
	c := DeviceDesc{Bus: 1, Address: 2}

	list.Add(a)
	list.Add(b)
	list.Add(c)
	list.Add(b) // duplicate, must not grow the list

	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0] != c || list[1] != b || list[2] != a {
		t.Fatalf("list = %v, want sorted [c, b, a]", list)
	}
	if list.Find(b) != 1 {
		t.Fatalf("Find(b) = %d, want 1", list.Find(b))
	}
	if list.Find(DeviceDesc{Bus: 9, Address: 9}) != -1 {
		t.Fatalf("Find of absent desc did not return -1")
	}
}
