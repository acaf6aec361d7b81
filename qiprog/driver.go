package qiprog

import "context"

// Driver is the typed command API of spec.md §4.2/§4.4: one method per
// protocol command. It is QiProg's "driver-dispatch abstraction that admits
// multiple backends" (spec.md §1) — the design notes (spec.md §9) call for
// "a single capability interface... with variants for USB-master and
// in-firmware use" rather than an open-coded table of function pointers,
// and this interface is that single capability surface.
//
// Two kinds of Driver exist in this repo:
//   - qiprog/host/gousbtransport.Transport performs each call as a real
//     USB control or bulk transfer against hardware.
//   - qiprog/loopback.Driver performs each call as a direct function call
//     into the qiprog/firmware demarshaller, skipping the wire entirely.
//
// Every method that can block on I/O takes a context.Context; per spec.md
// §5, no method is reentrant for a given Driver value and all calls from a
// single context happen on one goroutine.
type Driver interface {
	// Open transitions the device from CLOSED to OPEN (spec.md §4.3).
	Open(ctx context.Context) error

	// Close tears the device down and restores hardware defaults
	// (spec.md §4.3, "dev_close").
	Close(ctx context.Context) error

	// Capabilities returns the device's capability record (GET_CAPABILITIES,
	// spec.md §6). Valid in any device state.
	Capabilities(ctx context.Context) (Capabilities, error)

	// SetBus selects the electrical bus used to talk to the attached chip
	// (SET_BUS, spec.md §6). bus must be non-zero.
	SetBus(ctx context.Context, bus BusKind) error

	// SetClock requests a bus clock of khz kilohertz and returns the
	// actual clock the device settled on (SET_CLOCK, spec.md §6).
	SetClock(ctx context.Context, khz uint32) (actualKhz uint32, err error)

	// ReadChipID returns up to 9 chip-identification records
	// (READ_DEVICE_ID, spec.md §3, §6).
	ReadChipID(ctx context.Context) ([]ChipID, error)

	// SetAddress declares the chip-address window for subsequent bulk and
	// direct I/O, resetting both cursors to start (SET_ADDRESS, spec.md
	// §3, §6).
	SetAddress(ctx context.Context, start, end uint32) error

	// SetEraseSize configures the erase-block layout of the chip at
	// chipIdx (SET_ERASE_SIZE, spec.md §6). At most MaxEraseEntries
	// entries are accepted.
	SetEraseSize(ctx context.Context, chipIdx uint8, entries []EraseSizeEntry) error

	// SetEraseCommand configures the erase command sequence of the chip
	// at chipIdx (SET_ERASE_COMMAND, spec.md §6).
	SetEraseCommand(ctx context.Context, chipIdx uint8, cmd CommandSpec) error

	// SetWriteCommand configures the write command sequence of the chip
	// at chipIdx (SET_WRITE_COMMAND, spec.md §6).
	SetWriteCommand(ctx context.Context, chipIdx uint8, cmd CommandSpec) error

	// SetChipSize declares the size in bytes of the chip at chipIdx
	// (SET_CHIP_SIZE, spec.md §6).
	SetChipSize(ctx context.Context, chipIdx uint8, size uint32) error

	// SetSPITiming configures SPI bus timing (SET_SPI_TIMING, spec.md §6).
	SetSPITiming(ctx context.Context, tpuUS uint16, tcesNS uint16) error

	// SetVDD sets (or restores, when millivolts is 0) the chip supply
	// voltage (SET_VDD, spec.md §6).
	SetVDD(ctx context.Context, millivolts uint16, chipIdx uint8) error

	// Read8/Read16/Read32 read a single datum at addr (spec.md §6).
	Read8(ctx context.Context, addr uint32) (uint8, error)
	Read16(ctx context.Context, addr uint32) (uint16, error)
	Read32(ctx context.Context, addr uint32) (uint32, error)

	// Write8/Write16/Write32 write a single datum at addr (spec.md §6).
	Write8(ctx context.Context, addr uint32, val uint8) error
	Write16(ctx context.Context, addr uint32, val uint16) error
	Write32(ctx context.Context, addr uint32, val uint32) error

	// BulkRead streams len(dest) bytes from the current read cursor into
	// dest via the pipelined bulk-IN path (spec.md §4.7) and returns the
	// count actually delivered. Callers needing resumable, misaligned
	// reads should use host.Device.Read instead (spec.md §4.6).
	BulkRead(ctx context.Context, dest []byte) (int, error)

	// BulkWrite streams len(src) bytes from src to the current write
	// cursor via the pipelined bulk-OUT path and returns the count
	// actually sent.
	BulkWrite(ctx context.Context, src []byte) (int, error)

	// EndpointSizes returns the negotiated max-packet sizes of the bulk IN
	// and OUT endpoints (spec.md §6, "must read the descriptor to learn
	// the true max-packet sizes... must not assume 64").
	EndpointSizes() (in, out int)
}
