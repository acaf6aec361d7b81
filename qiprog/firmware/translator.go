package firmware

import (
	"github.com/qiprog/qiprog/internal/leu"
	"github.com/qiprog/qiprog/qiprog"
)

// Request is one decoded wire request (spec.md §4.5): "inbound wire
// requests (opcode, field_a, field_b, body, body_len) dispatch through a
// single switch over the opcode set."
type Request struct {
	Op             qiprog.Opcode
	FieldA, FieldB uint16
	Body           []byte
}

// Translator is the device-side address window, the bulk-IN ring (spec.md
// §4.8), and the command demarshaller (spec.md §4.5) dispatching into one
// ChipDriver.
type Translator struct {
	drv         ChipDriver
	maxTxPacket int

	start, end    uint32
	pread, pwrite uint64

	ring             [ringDepth]task
	head, tail, size int
}

// NewTranslator returns a Translator dispatching into drv, streaming bulk
// IN in packets of at most maxTxPacket bytes.
func NewTranslator(drv ChipDriver, maxTxPacket int) *Translator {
	return &Translator{drv: drv, maxTxPacket: maxTxPacket}
}

// Window reports the device-side address window and cursors, truncated to
// the wire's 32-bit fields.
func (tr *Translator) Window() qiprog.AddressWindow {
	return qiprog.AddressWindow{
		Start:  tr.start,
		End:    tr.end,
		PRead:  uint32(tr.pread),
		PWrite: uint32(tr.pwrite),
	}
}

// resetWindow implements the device-side half of SET_ADDRESS (spec.md
// §4.5: "it updates the device-side address window before invoking the
// driver, so subsequent bulk IN transfers stream from the correct chip
// region") and discards any staged bulk-IN packets, since they describe
// bytes from the range that just became obsolete.
func (tr *Translator) resetWindow(start, end uint32) {
	tr.start, tr.end = start, end
	tr.pread, tr.pwrite = uint64(start), uint64(start)
	tr.head, tr.tail, tr.size = 0, 0, 0
	for i := range tr.ring {
		tr.ring[i] = task{}
	}
}

// Dispatch decodes and executes one control request, returning the
// response body for an IN opcode (nil for OUT), or an error that signals
// the control endpoint should STALL (spec.md §4.5, §4.9).
func (tr *Translator) Dispatch(req Request) ([]byte, error) {
	switch req.Op {
	case qiprog.OpGetCapabilities:
		return qiprog.MarshalCapabilities(tr.drv.Capabilities()), nil

	case qiprog.OpSetBus:
		return nil, tr.drv.SetBus(qiprog.BusKind(qiprog.UnpackAddress(req.FieldA, req.FieldB)))

	case qiprog.OpSetClock:
		actual, err := tr.drv.SetClock(qiprog.UnpackAddress(req.FieldA, req.FieldB))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		leu.WriteU32(actual, buf, 0)
		return buf, nil

	case qiprog.OpReadDeviceID:
		return qiprog.MarshalChipIDs(tr.drv.ReadChipID()), nil

	case qiprog.OpSetAddress:
		start, end, err := qiprog.UnmarshalAddressWindow(req.Body)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, qiprog.ArgumentError("set_address: end %#x precedes start %#x", end, start)
		}
		tr.resetWindow(start, end)
		return nil, nil

	case qiprog.OpSetEraseSize:
		entries, err := qiprog.UnmarshalEraseSizeEntries(req.Body)
		if err != nil {
			return nil, err
		}
		return nil, tr.drv.SetEraseSize(uint8(req.FieldB), entries)

	case qiprog.OpSetEraseCommand:
		cmd, err := qiprog.UnmarshalCommandSpec(req.Body)
		if err != nil {
			return nil, err
		}
		return nil, tr.drv.SetEraseCommand(uint8(req.FieldB), cmd)

	case qiprog.OpSetWriteCommand:
		cmd, err := qiprog.UnmarshalCommandSpec(req.Body)
		if err != nil {
			return nil, err
		}
		return nil, tr.drv.SetWriteCommand(uint8(req.FieldB), cmd)

	case qiprog.OpSetChipSize:
		if len(req.Body) < 4 {
			return nil, qiprog.ArgumentError("set_chip_size: body too short: got %d bytes, want 4", len(req.Body))
		}
		return nil, tr.drv.SetChipSize(uint8(req.FieldB), leu.ReadU32(req.Body, 0))

	case qiprog.OpSetSPITiming:
		return nil, tr.drv.SetSPITiming(req.FieldA, req.FieldB)

	case qiprog.OpSetVDD:
		return nil, tr.drv.SetVDD(req.FieldA, uint8(req.FieldB))

	case qiprog.OpRead8:
		v, err := tr.drv.Read8(qiprog.UnpackAddress(req.FieldA, req.FieldB))
		if err != nil {
			return nil, err
		}
		return []byte{v}, nil

	case qiprog.OpRead16:
		v, err := tr.drv.Read16(qiprog.UnpackAddress(req.FieldA, req.FieldB))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 2)
		leu.WriteU16(v, buf, 0)
		return buf, nil

	case qiprog.OpRead32:
		v, err := tr.drv.Read32(qiprog.UnpackAddress(req.FieldA, req.FieldB))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 4)
		leu.WriteU32(v, buf, 0)
		return buf, nil

	case qiprog.OpWrite8:
		if len(req.Body) < 1 {
			return nil, qiprog.ArgumentError("write8: empty body")
		}
		return nil, tr.drv.Write8(qiprog.UnpackAddress(req.FieldA, req.FieldB), req.Body[0])

	case qiprog.OpWrite16:
		if len(req.Body) < 2 {
			return nil, qiprog.ArgumentError("write16: body too short: got %d bytes, want 2", len(req.Body))
		}
		return nil, tr.drv.Write16(qiprog.UnpackAddress(req.FieldA, req.FieldB), leu.ReadU16(req.Body, 0))

	case qiprog.OpWrite32:
		if len(req.Body) < 4 {
			return nil, qiprog.ArgumentError("write32: body too short: got %d bytes, want 4", len(req.Body))
		}
		return nil, tr.drv.Write32(qiprog.UnpackAddress(req.FieldA, req.FieldB), leu.ReadU32(req.Body, 0))

	default:
		return nil, qiprog.ArgumentError("unknown opcode %#x", uint8(req.Op))
	}
}
