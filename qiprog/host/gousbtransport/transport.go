package gousbtransport

import (
	"context"
	"time"

	"github.com/google/gousb"

	"github.com/qiprog/qiprog/qiprog"
)

// bulkEndpointNum is QiProg's fixed bulk streaming endpoint, in+out
// (spec.md §1, "bulk endpoint 1 IN/OUT streaming").
const bulkEndpointNum = 1

// WireTimeout is the per-wire-operation deadline spec.md §5 mandates
// ("default 3000 ms per wire operation").
const WireTimeout = 3000 * time.Millisecond

// Transport is the USB-master qiprog.Driver: every method is a real
// control or bulk transfer against matched, issued over iface's bulk
// endpoints.
type Transport struct {
	dev       *gousb.Device
	iface     *gousb.Interface
	ifaceDone func()
	epIn      *gousb.InEndpoint
	epOut     *gousb.OutEndpoint
}

// Open is a no-op on the USB side (the interface is already claimed by
// Scanner.Open); it exists to satisfy qiprog.Driver's state-machine
// contract (spec.md §4.3, CLOSED -> OPEN).
func (t *Transport) Open(ctx context.Context) error {
	return nil
}

// Close releases the claimed interface and the device handle.
func (t *Transport) Close(ctx context.Context) error {
	if t.ifaceDone != nil {
		t.ifaceDone()
		t.ifaceDone = nil
	}
	if t.dev != nil {
		err := t.dev.Close()
		t.dev = nil
		return err
	}
	return nil
}

// EndpointSizes reports the true negotiated max-packet sizes read from the
// device descriptor (spec.md §6, §9 Open Question (a) — never assume 64).
func (t *Transport) EndpointSizes() (in, out int) {
	return t.epIn.Desc.MaxPacketSize, t.epOut.Desc.MaxPacketSize
}

// control issues one QiProg control request (spec.md §6) and returns the
// response body for an IN request, or nil for an OUT request.
func (t *Transport) control(ctx context.Context, op qiprog.Opcode, fieldA, fieldB uint16, body []byte, respLen int) ([]byte, error) {
	if len(body) > qiprog.MaxControlBody {
		return nil, qiprog.ArgumentError(
			"%s: body of %d bytes exceeds the %d-byte control-transfer cap",
			op, len(body), qiprog.MaxControlBody)
	}

	deadline, cancel := context.WithTimeout(ctx, WireTimeout)
	defer cancel()

	if op.Direction() == qiprog.In {
		buf := make([]byte, respLen)
		n, err := t.dev.Control(qiprog.BmRequestTypeIn, uint8(op), fieldA, fieldB, buf)
		if err != nil {
			return nil, classifyControlError(deadline, op, err)
		}
		if n != respLen {
			return nil, qiprog.GenericError(nil,
				"%s: short response: got %d bytes, want %d", op, n, respLen)
		}
		return buf, nil
	}

	n, err := t.dev.Control(qiprog.BmRequestTypeOut, uint8(op), fieldA, fieldB, body)
	if err != nil {
		return nil, classifyControlError(deadline, op, err)
	}
	if n != len(body) {
		return nil, qiprog.GenericError(nil,
			"%s: short write: sent %d of %d bytes", op, n, len(body))
	}
	return nil, nil
}

// classifyControlError maps a failed control transfer to spec.md §7's
// taxonomy: a context deadline exceeded is a timeout, anything else from
// the transport is generic (spec.md §4.9, "any transport failure ->
// generic error").
func classifyControlError(ctx context.Context, op qiprog.Opcode, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return qiprog.TimeoutError("%s: %s", op, ctx.Err())
	}
	return qiprog.GenericError(err, "%s: control transfer failed", op)
}
