// Package cursor implements the resumable, misalignment-tolerant chip-read
// algorithm of spec.md §4.6 on top of a qiprog.Driver. It owns the
// address-window bookkeeping a raw Driver does not: the declared
// [start,end] range, the read/write cursors into it, and the leftover bytes
// held back from a bulk-IN packet that overran the caller's request.
package cursor

import (
	"context"

	"github.com/qiprog/qiprog/qiprog"
)

// Cursor tracks one device's address window and mediates Read/Write calls
// against its qiprog.Driver so that misaligned or resumed requests never
// reissue a SET_ADDRESS unnecessarily (spec.md §4.4, short-circuit
// optimization) and never drop bytes a prior bulk-IN packet already
// delivered past the caller's boundary (spec.md §4.6).
//
// A Cursor is not safe for concurrent use; spec.md §5 requires all calls
// against one device to happen on a single goroutine.
type Cursor struct {
	drv qiprog.Driver

	haveWindow bool
	start, end uint32 // declared window, end inclusive

	// pread/pwrite are kept in u64 so that a window ending at the top of
	// the 32-bit address space can advance to "end+1" (0x100000000)
	// without wrapping to zero, per spec.md §4.9's open question on
	// wraparound arithmetic.
	pread, pwrite uint64

	// leftover holds bytes already pulled off the wire by a bulk-IN
	// packet that ran past the last request's boundary; they are valid
	// bytes immediately following pread in chip-address order (spec.md
	// §3) and are consumed before any new bulk transfer is issued.
	leftover []byte
}

// New returns a Cursor with no declared window; the first Read or Write
// call establishes one via SetAddress.
func New(drv qiprog.Driver) *Cursor {
	return &Cursor{drv: drv}
}

// Window reports the wire-visible address window, truncated to the 32-bit
// fields of qiprog.AddressWindow. A cursor parked at end+1 == 0x100000000
// reports PRead/PWrite as 0.
func (c *Cursor) Window() qiprog.AddressWindow {
	return qiprog.AddressWindow{
		Start:  c.start,
		End:    c.end,
		PRead:  uint32(c.pread),
		PWrite: uint32(c.pwrite),
	}
}

// SetAddress declares a new window, resetting both cursors to start and
// discarding any leftover bytes (spec.md §3, §6).
func (c *Cursor) SetAddress(ctx context.Context, start, end uint32) error {
	if end < start {
		return qiprog.ArgumentError("set_address: end %#x precedes start %#x", end, start)
	}
	if err := c.drv.SetAddress(ctx, start, end); err != nil {
		return err
	}
	c.haveWindow = true
	c.start, c.end = start, end
	c.pread, c.pwrite = uint64(start), uint64(start)
	c.leftover = nil
	return nil
}

// lastAddr returns the inclusive last address of an n-byte request starting
// at where, computed in u64 so overflow past 0xFFFFFFFF is detected rather
// than silently wrapping (spec.md §4.6, "range safety").
func lastAddr(where uint32, n int) (uint64, error) {
	last := uint64(where) + uint64(n) - 1
	if last > 0xFFFFFFFF {
		return 0, qiprog.ArgumentError(
			"request [%#x,+%d) exceeds the 32-bit chip address space", where, n)
	}
	return last, nil
}

// Read delivers len(dest) bytes starting at the chip address where,
// implementing the four-step algorithm of spec.md §4.6:
//
//  1. Re-declare the window with SET_ADDRESS only if the cursor isn't
//     already parked at where or the declared end can't cover the request;
//     the declared end is rounded up to the far edge of the packet
//     carrying the trailing remainder, so a misaligned request can
//     legitimately overrun into leftover rather than being clipped at
//     the caller's own boundary.
//  2. Satisfy as much of the request as possible from leftover bytes held
//     from a prior over-running packet.
//  3. Bulk-read whole packets directly into dest for the aligned middle of
//     the request.
//  4. For a final partial packet, read one full packet into a scratch
//     buffer, copy the wanted prefix into dest, and retain the rest as the
//     new leftover.
func (c *Cursor) Read(ctx context.Context, where uint32, dest []byte) (int, error) {
	n := len(dest)
	if n == 0 {
		return 0, nil
	}
	last, err := lastAddr(where, n)
	if err != nil {
		return 0, err
	}

	epIn, _ := c.drv.EndpointSizes()
	if epIn <= 0 {
		return 0, qiprog.ArgumentError("driver reports non-positive bulk-IN packet size %d", epIn)
	}

	if !c.haveWindow || c.pread != uint64(where) || uint64(c.end) < last {
		// Extend the declared end past the caller's request to the end of
		// the packet that will carry the trailing sub-packet remainder, so
		// that remainder legitimately overruns into leftover (spec.md
		// §4.6) instead of being clipped exactly at the caller's boundary,
		// which would leave the leftover buffer unreachable on an ordinary
		// misaligned read. A request that lands exactly on a packet
		// boundary needs no such extension.
		declaredLast := last
		if tail := n % epIn; tail != 0 {
			declaredLast += uint64(epIn - tail)
		}
		if declaredLast > 0xFFFFFFFF {
			declaredLast = 0xFFFFFFFF
		}
		if err := c.SetAddress(ctx, where, uint32(declaredLast)); err != nil {
			return 0, err
		}
	}

	got := 0

	if len(c.leftover) > 0 {
		k := len(c.leftover)
		if k > n {
			k = n
		}
		copy(dest[:k], c.leftover[:k])
		c.leftover = c.leftover[k:]
		c.pread += uint64(k)
		got += k
		dest = dest[k:]
		n -= k
		if n == 0 {
			return got, nil
		}
	}

	if aligned := (n / epIn) * epIn; aligned > 0 {
		m, err := c.drv.BulkRead(ctx, dest[:aligned])
		c.pread += uint64(m)
		got += m
		if err != nil {
			return got, err
		}
		if m != aligned {
			return got, qiprog.GenericError(nil,
				"bulk read short: wanted %d bytes, got %d", aligned, m)
		}
		dest = dest[m:]
		n -= m
	}

	if n > 0 {
		pkt := make([]byte, epIn)
		m, err := c.drv.BulkRead(ctx, pkt)
		if m > epIn {
			m = epIn
		}
		take := n
		if take > m {
			take = m
		}
		copy(dest[:take], pkt[:take])
		// pread tracks the next byte the *caller* will ask for next, not
		// the device's wire cursor: advancing by the full packet length m
		// instead of take would leave pread past where the caller resumes,
		// forcing a spurious SET_ADDRESS (and discarding leftover) on the
		// very next resumed Read (spec.md §4.6, "Resumable reads").
		c.pread += uint64(take)
		got += take
		if m > take {
			c.leftover = append([]byte(nil), pkt[take:m]...)
		}
		if err != nil {
			return got, err
		}
		if take < n {
			return got, qiprog.GenericError(nil,
				"bulk read short: wanted %d more bytes, device returned %d", n, m)
		}
	}

	return got, nil
}

// Write sends len(src) bytes to the chip starting at where, re-declaring
// the window as exactly [where, where+len(src)-1] unless the write cursor
// is already parked at where and the declared end already covers the
// request (spec.md §4.4, §4.6 applied symmetrically to the OUT direction).
// Unlike
// Read, a trailing sub-packet remainder is simply sent as a short USB
// packet; there is no leftover buffer on the write side.
func (c *Cursor) Write(ctx context.Context, where uint32, src []byte) (int, error) {
	n := len(src)
	if n == 0 {
		return 0, nil
	}
	last, err := lastAddr(where, n)
	if err != nil {
		return 0, err
	}

	if !c.haveWindow || c.pwrite != uint64(where) || uint64(c.end) < last {
		if err := c.SetAddress(ctx, where, uint32(last)); err != nil {
			return 0, err
		}
	}

	m, err := c.drv.BulkWrite(ctx, src)
	c.pwrite += uint64(m)
	return m, err
}

// Invalidate discards any leftover bytes without touching the declared
// window or cursors. Nothing else in this module calls it.
func (c *Cursor) Invalidate() {
	c.leftover = nil
}
