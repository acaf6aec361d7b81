package gousbtransport

import (
	"context"

	"github.com/qiprog/qiprog/qiprog/pipeline"
)

// BulkRead streams len(dest) bytes from the current read cursor over the
// bulk IN endpoint, pipelining whole packets per qiprog/pipeline (spec.md
// §4.7). The caller (qiprog/cursor) guarantees len(dest) is a multiple of
// the IN endpoint's max-packet size.
func (t *Transport) BulkRead(ctx context.Context, dest []byte) (int, error) {
	packetSize := t.epIn.Desc.MaxPacketSize
	res := pipeline.Run(ctx, func(ctx context.Context, buf []byte) (int, error) {
		deadline, cancel := context.WithTimeout(ctx, WireTimeout)
		defer cancel()
		return t.epIn.ReadContext(deadline, buf)
	}, dest, packetSize)
	return res.TransferredBytes, res.Err
}

// BulkWrite streams len(src) bytes to the current write cursor over the
// bulk OUT endpoint, pipelining the whole packets the same way and then
// sending any trailing sub-packet remainder as one short packet.
func (t *Transport) BulkWrite(ctx context.Context, src []byte) (int, error) {
	packetSize := t.epOut.Desc.MaxPacketSize
	aligned := 0
	if packetSize > 0 {
		aligned = len(src) / packetSize * packetSize
	}
	res := pipeline.Run(ctx, func(ctx context.Context, buf []byte) (int, error) {
		deadline, cancel := context.WithTimeout(ctx, WireTimeout)
		defer cancel()
		return t.epOut.WriteContext(deadline, buf)
	}, src[:aligned], packetSize)
	if res.Err != nil || aligned == len(src) {
		return res.TransferredBytes, res.Err
	}
	deadline, cancel := context.WithTimeout(ctx, WireTimeout)
	defer cancel()
	n, err := t.epOut.WriteContext(deadline, src[aligned:])
	return aligned + n, err
}
