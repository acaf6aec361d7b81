package host

import (
	"fmt"
	"sort"

	"github.com/qiprog/qiprog/qiprog"
)

// DeviceDesc identifies one candidate device found by a Scan: its USB
// vendor/product match plus its bus/address location, which together form
// a stable handle a caller can Open without re-enumerating (spec.md §4.3).
type DeviceDesc struct {
	qiprog.USBID
	Bus, Address int
}

// String returns a short human-readable description, for logging.
func (d DeviceDesc) String() string {
	return fmt.Sprintf("Bus %.3d Device %.3d (%.4x:%.4x)",
		d.Bus, d.Address, d.Vendor, d.Product)
}

// Less orders DeviceDesc by bus then address, for DeviceDescList's sorted
// invariant.
func (d DeviceDesc) Less(d2 DeviceDesc) bool {
	return d.Bus < d2.Bus || (d.Bus == d2.Bus && d.Address < d2.Address)
}

// DeviceDescList is a list of candidate devices, always kept sorted in
// ascending bus/address order so scans are reproducible and diffable.
// Callers must use Add rather than appending directly.
type DeviceDescList []DeviceDesc

// Add inserts d into the list, preserving sort order, and is a no-op if d
// is already present.
func (list *DeviceDescList) Add(d DeviceDesc) {
	i := sort.Search(len(*list), func(n int) bool {
		return !(*list)[n].Less(d)
	})

	if i < len(*list) && (*list)[i] == d {
		return
	}
	if i == len(*list) {
		*list = append(*list, d)
		return
	}
	*list = append(*list, DeviceDesc{})
	copy((*list)[i+1:], (*list)[i:])
	(*list)[i] = d
}

// Find returns the index of d in the list, or -1 if absent.
func (list DeviceDescList) Find(d DeviceDesc) int {
	i := sort.Search(len(list), func(n int) bool {
		return !list[n].Less(d)
	})
	if i < len(list) && list[i] == d {
		return i
	}
	return -1
}
