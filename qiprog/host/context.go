// Package host implements the host-side half of the QiProg engine: a
// process-wide Context that owns device discovery and a registry of open
// devices (spec.md §4.3), and the command marshaller's validation rules
// (spec.md §4.4) layered in front of a qiprog.Driver.
package host

import (
	"context"

	"github.com/qiprog/qiprog/internal/qplog"
	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/cursor"
)

// Scanner discovers candidate devices and opens a qiprog.Driver for one.
// qiprog/host/gousbtransport implements this against real USB hardware;
// qiprog/loopback implements it as a single fixed in-process device.
type Scanner interface {
	// Scan lists devices matching any of ids. A nil/empty ids matches
	// qiprog.DefaultUSBID only.
	Scan(ctx context.Context, ids []qiprog.USBID) (DeviceDescList, error)

	// Open returns a Driver bound to desc, not yet transitioned to OPEN.
	Open(ctx context.Context, desc DeviceDesc) (qiprog.Driver, error)
}

// Context is the process-wide owner of device discovery and the set of
// currently-open devices (spec.md §9, "process-wide state... replace with
// an explicit context parameter"). Per spec.md §5, a Context and the
// Devices it owns are not safe for concurrent use from more than one
// goroutine: exactly one goroutine drives a given context's event loop, so
// no internal locking is used, matching the reference's cooperative model.
type Context struct {
	scanner Scanner
	log     *qplog.Logger
	devices []*Device
}

// NewContext returns a Context that discovers and opens devices through
// scanner, logging through log (qplog.New() if log is nil).
func NewContext(scanner Scanner, log *qplog.Logger) *Context {
	if log == nil {
		log = qplog.New()
	}
	return &Context{scanner: scanner, log: log}
}

// Scan lists candidate devices matching any of ids (qiprog.DefaultUSBID if
// none given).
func (c *Context) Scan(ctx context.Context, ids ...qiprog.USBID) (DeviceDescList, error) {
	if len(ids) == 0 {
		ids = []qiprog.USBID{qiprog.DefaultUSBID}
	}
	return c.scanner.Scan(ctx, ids)
}

// Open transitions the device at desc from CLOSED to OPEN and adds it to
// the context's registry (spec.md §4.3).
func (c *Context) Open(ctx context.Context, desc DeviceDesc) (*Device, error) {
	drv, err := c.scanner.Open(ctx, desc)
	if err != nil {
		return nil, err
	}
	if drv == nil {
		return nil, qiprog.ArgumentError("open %s: scanner returned a nil driver", desc)
	}
	if err := drv.Open(ctx); err != nil {
		return nil, err
	}

	dev := &Device{
		ctx:  c,
		desc: desc,
		drv:  drv,
		cur:  cursor.New(drv),
		log:  c.log,
	}
	c.devices = append(c.devices, dev)
	return dev, nil
}

// Devices returns the currently open devices, in open order.
func (c *Context) Devices() []*Device {
	out := make([]*Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// closeOne removes dev from the registry; called by Device.Close.
func (c *Context) closeOne(dev *Device) {
	for i, d := range c.devices {
		if d == dev {
			c.devices = append(c.devices[:i], c.devices[i+1:]...)
			return
		}
	}
}
