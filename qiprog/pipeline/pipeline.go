// Package pipeline implements the depth-bounded, self-resubmitting bulk
// transfer queue of spec.md §4.7. It is the layer a USB-master Driver
// backend (qiprog/host/gousbtransport) uses internally to turn one
// caller-requested range into many endpoint-sized packet transfers in
// flight at once.
//
// The reference this is modeled on runs every completion callback on a
// single cooperative event-loop thread, so its shared transferred_bytes and
// active_transfers counters need no synchronization. This package instead
// runs one goroutine per queue slot — spec.md §9's design notes say exactly
// this is acceptable provided the counters are promoted to atomics and a
// completion-waiting primitive is added, which is what PacketFunc workers
// and the sync.WaitGroup below do.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/qiprog/qiprog/qiprog"
)

// MaxQueueDepth is the maximum number of transfers kept in flight at once
// (spec.md §4.7, "up to 32 transfers in flight").
const MaxQueueDepth = 32

// PacketFunc submits exactly one endpoint-sized packet transfer against buf
// and reports the number of bytes actually moved. A short transfer (n !=
// len(buf)) or a non-nil err both count as failure of that transfer.
type PacketFunc func(ctx context.Context, buf []byte) (n int, err error)

// Result reports the outcome of a Run call.
type Result struct {
	// TransferredBytes is the number of bytes the pipeline actually moved
	// before any failure, always a multiple of the packet size.
	TransferredBytes int
	// Err is nil on full success, or the generic error from the first
	// failed transfer (spec.md §4.9: "first failed transfer halts
	// resubmission; the call returns a generic error").
	Err error
}

// Run drives buf through submit in packetSize-sized slices, up to
// MaxQueueDepth transfers in flight at once, self-resubmitting each queue
// slot's next index until the whole buffer is covered or a transfer fails
// (spec.md §4.7). len(buf) must be a multiple of packetSize; the pipeline
// only ever moves whole packets, per spec.md §4.6's split between this
// package (aligned middle of a request) and the synchronous trailing
// partial-packet path.
func Run(ctx context.Context, submit PacketFunc, buf []byte, packetSize int) Result {
	if packetSize <= 0 {
		return Result{Err: qiprog.ArgumentError("pipeline: non-positive packet size %d", packetSize)}
	}
	if len(buf)%packetSize != 0 {
		return Result{Err: qiprog.ArgumentError(
			"pipeline: buffer length %d is not a multiple of packet size %d", len(buf), packetSize)}
	}

	totalTransfers := len(buf) / packetSize
	if totalTransfers == 0 {
		return Result{}
	}

	depth := totalTransfers
	if depth > MaxQueueDepth {
		depth = MaxQueueDepth
	}

	var (
		transferredBytes int64
		failed           int32
		mu               sync.Mutex
		firstErr         error
		wg               sync.WaitGroup
	)

	wg.Add(depth)
	for slot := 0; slot < depth; slot++ {
		go func(transferNumber int) {
			defer wg.Done()
			for transferNumber < totalTransfers {
				if atomic.LoadInt32(&failed) != 0 {
					return
				}

				start := transferNumber * packetSize
				packet := buf[start : start+packetSize]

				n, err := submit(ctx, packet)
				if err != nil || n != packetSize {
					mu.Lock()
					if firstErr == nil {
						firstErr = qiprog.GenericError(err,
							"bulk pipeline: transfer %d got %d of %d bytes",
							transferNumber, n, packetSize)
					}
					mu.Unlock()
					atomic.StoreInt32(&failed, 1)
					return
				}

				atomic.AddInt64(&transferredBytes, int64(n))
				transferNumber += depth
			}
		}(slot)
	}
	wg.Wait()

	return Result{
		TransferredBytes: int(atomic.LoadInt64(&transferredBytes)),
		Err:              firstErr,
	}
}
