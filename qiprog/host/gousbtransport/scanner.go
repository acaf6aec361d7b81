// Package gousbtransport is the USB-master qiprog.Driver backend: it
// implements every QiProg command as a real control or bulk transfer
// against hardware, using github.com/google/gousb for the underlying
// libusb bindings.
package gousbtransport

import (
	"context"

	"github.com/google/gousb"

	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/host"
)

// Scanner discovers QiProg programmers over real USB and opens gousb
// handles for them. It owns one libusb context for its lifetime; Close it
// when the process is done talking to USB.
type Scanner struct {
	ctx *gousb.Context
}

// NewScanner returns a Scanner backed by a fresh libusb context.
func NewScanner() *Scanner {
	return &Scanner{ctx: gousb.NewContext()}
}

// Close releases the underlying libusb context.
func (s *Scanner) Close() error {
	return s.ctx.Close()
}

func matchesAny(desc *gousb.DeviceDesc, ids []qiprog.USBID) bool {
	for _, id := range ids {
		if uint16(desc.Vendor) == id.Vendor && uint16(desc.Product) == id.Product {
			return true
		}
	}
	return false
}

// Scan lists attached devices matching any of ids (host.Scanner).
func (s *Scanner) Scan(ctx context.Context, ids []qiprog.USBID) (host.DeviceDescList, error) {
	var found host.DeviceDescList
	if len(ids) == 0 {
		ids = []qiprog.USBID{qiprog.DefaultUSBID}
	}

	devs, err := s.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return matchesAny(desc, ids)
	})
	for _, d := range devs {
		found.Add(host.DeviceDesc{
			USBID:   qiprog.USBID{Vendor: uint16(d.Desc.Vendor), Product: uint16(d.Desc.Product)},
			Bus:     d.Desc.Bus,
			Address: d.Desc.Address,
		})
		d.Close()
	}
	if err != nil {
		return found, qiprog.GenericError(err, "scanning USB devices")
	}
	return found, nil
}

// Open reopens the specific device identified by desc and claims its
// default interface and bulk endpoints (host.Scanner). The returned Driver
// is not yet transitioned to the OPEN protocol state; the caller's
// host.Context.Open does that.
func (s *Scanner) Open(ctx context.Context, desc host.DeviceDesc) (qiprog.Driver, error) {
	var matched *gousb.Device
	devs, err := s.ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Bus == desc.Bus && d.Address == desc.Address &&
			uint16(d.Vendor) == desc.Vendor && uint16(d.Product) == desc.Product
	})
	for _, d := range devs {
		if matched == nil {
			matched = d
		} else {
			d.Close() // duplicate match, shouldn't happen; keep the first
		}
	}
	if err != nil && matched == nil {
		return nil, qiprog.GenericError(err, "opening %s", desc)
	}
	if matched == nil {
		return nil, qiprog.ArgumentError("no USB device matches %s", desc)
	}

	iface, done, err := matched.DefaultInterface()
	if err != nil {
		matched.Close()
		return nil, qiprog.GenericError(err, "claiming default interface of %s", desc)
	}

	epIn, err := iface.InEndpoint(bulkEndpointNum)
	if err != nil {
		done()
		matched.Close()
		return nil, qiprog.GenericError(err, "opening bulk IN endpoint of %s", desc)
	}
	epOut, err := iface.OutEndpoint(bulkEndpointNum)
	if err != nil {
		done()
		matched.Close()
		return nil, qiprog.GenericError(err, "opening bulk OUT endpoint of %s", desc)
	}

	return &Transport{
		dev:       matched,
		iface:     iface,
		ifaceDone: done,
		epIn:      epIn,
		epOut:     epOut,
	}, nil
}
