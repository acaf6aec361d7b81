// Command qiprogctl is QiProg's thin CLI exerciser (spec.md §1): it scans
// for attached programmers, opens one, and drives the command set by hand
// (capabilities, chip-id, hexdump a chip range, write a byte/word/dword).
// It deliberately does not parse flash image files or maintain a
// vendor/device-ID database (spec.md §1 Non-goals) — it exists to drive
// the protocol engine, not to be a flashing tool.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/qiprog/qiprog/internal/qpconf"
	"github.com/qiprog/qiprog/internal/qplog"
	"github.com/qiprog/qiprog/qiprog"
	"github.com/qiprog/qiprog/qiprog/host"
	"github.com/qiprog/qiprog/qiprog/host/gousbtransport"
)

const usageText = `Usage:
    %s [options] command [args]

Commands are:
    scan               - list attached QiProg programmers
    caps               - open the first match and print its capabilities
    chipid             - open the first match and read chip-id records
    read ADDR LEN      - hexdump LEN bytes starting at chip address ADDR
    write8  ADDR VAL   - write one byte at ADDR
    write16 ADDR VAL   - write one little-endian word at ADDR
    write32 ADDR VAL   - write one little-endian dword at ADDR

Options are:
    -conf PATH   - load configuration from PATH (default qiprog.conf)
    -vid HEX     - override the scanned vendor ID
    -pid HEX     - override the scanned product ID
`

func usage() {
	fmt.Printf(usageText, filepath.Base(os.Args[0]))
	os.Exit(0)
}

func usageError(format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	fmt.Fprintf(os.Stderr, "Try %s -h for more information\n", filepath.Base(os.Args[0]))
	os.Exit(1)
}

// params are qiprogctl's parsed command-line arguments. Argument parsing
// itself is deliberately simple hand-rolled flag scanning, not a general
// parser (spec.md §1 treats "the CLI argument parser" as out of scope for
// the protocol engine; this is just enough of one to drive it).
type params struct {
	confPath string
	vid, pid uint16
	hasVID   bool
	hasPID   bool
	command  string
	args     []string
}

func parseArgv() params {
	p := params{confPath: qpconf.FileName}

	argv := os.Args[1:]
	i := 0
	for ; i < len(argv); i++ {
		switch argv[i] {
		case "-h", "-help", "--help":
			usage()
		case "-conf":
			i++
			if i >= len(argv) {
				usageError("-conf requires a path")
			}
			p.confPath = argv[i]
		case "-vid":
			i++
			if i >= len(argv) {
				usageError("-vid requires a hex vendor ID")
			}
			v, err := strconv.ParseUint(argv[i], 16, 16)
			if err != nil {
				usageError("invalid -vid %q: %s", argv[i], err)
			}
			p.vid, p.hasVID = uint16(v), true
		case "-pid":
			i++
			if i >= len(argv) {
				usageError("-pid requires a hex product ID")
			}
			v, err := strconv.ParseUint(argv[i], 16, 16)
			if err != nil {
				usageError("invalid -pid %q: %s", argv[i], err)
			}
			p.pid, p.hasPID = uint16(v), true
		default:
			goto commandFound
		}
	}

commandFound:
	if i >= len(argv) {
		usageError("missing command")
	}
	p.command = argv[i]
	p.args = argv[i+1:]
	return p
}

func main() {
	p := parseArgv()

	cfg, err := qpconf.Load(p.confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ids := cfg.USBIDs
	if p.hasVID || p.hasPID {
		id := qiprog.DefaultUSBID
		if len(ids) > 0 {
			id = ids[0]
		}
		if p.hasVID {
			id.Vendor = p.vid
		}
		if p.hasPID {
			id.Product = p.pid
		}
		ids = []qiprog.USBID{id}
	}

	log := qplog.New()
	if cfg.ColorConsole {
		log.ToColorConsole()
	} else {
		log.ToConsole()
	}
	log.SetLevels(cfg.LogLevel)

	scanner := gousbtransport.NewScanner()
	defer scanner.Close()

	hctx := host.NewContext(scanner, log)
	ctx := context.Background()

	var runErr error
	switch p.command {
	case "scan":
		runErr = cmdScan(ctx, hctx, ids)
	case "caps":
		runErr = cmdCaps(ctx, hctx, ids)
	case "chipid":
		runErr = cmdChipID(ctx, hctx, ids)
	case "read":
		runErr = cmdRead(ctx, hctx, ids, p.args)
	case "write8":
		runErr = cmdWrite(ctx, hctx, ids, p.args, 1)
	case "write16":
		runErr = cmdWrite(ctx, hctx, ids, p.args, 2)
	case "write32":
		runErr = cmdWrite(ctx, hctx, ids, p.args, 4)
	default:
		usageError("unknown command %q", p.command)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", p.command, runErr)
		os.Exit(1)
	}
}

func cmdScan(ctx context.Context, hctx *host.Context, ids []qiprog.USBID) error {
	descs, err := hctx.Scan(ctx, ids...)
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		fmt.Println("no QiProg programmers found")
		return nil
	}
	for _, d := range descs {
		fmt.Println(d)
	}
	return nil
}

// openFirst scans for ids and opens the first match, for the single-device
// commands (caps, chipid, read, write*).
func openFirst(ctx context.Context, hctx *host.Context, ids []qiprog.USBID) (*host.Device, error) {
	descs, err := hctx.Scan(ctx, ids...)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, qiprog.GenericError(nil, "no QiProg programmers found")
	}
	return hctx.Open(ctx, descs[0])
}

func cmdCaps(ctx context.Context, hctx *host.Context, ids []qiprog.USBID) error {
	dev, err := openFirst(ctx, hctx, ids)
	if err != nil {
		return err
	}
	defer dev.Close(ctx)

	caps, err := dev.Capabilities(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("instruction set:  %#04x\n", uint16(caps.InstructionSet))
	fmt.Printf("bus master:       %s\n", caps.BusMaster)
	fmt.Printf("max direct data:  %d\n", caps.MaxDirectData)
	fmt.Printf("voltages (mV):    %v\n", caps.Voltages)
	return nil
}

func cmdChipID(ctx context.Context, hctx *host.Context, ids []qiprog.USBID) error {
	dev, err := openFirst(ctx, hctx, ids)
	if err != nil {
		return err
	}
	defer dev.Close(ctx)

	chipIDs, err := dev.ReadChipID(ctx)
	if err != nil {
		return err
	}
	if len(chipIDs) == 0 {
		fmt.Println("no chip identified")
		return nil
	}
	for i, id := range chipIDs {
		fmt.Printf("chip %d: method=%#02x vendor=%#04x device=%#08x\n", i, uint8(id.Method), id.VendorID, id.DeviceID)
	}
	return nil
}

func cmdRead(ctx context.Context, hctx *host.Context, ids []qiprog.USBID, args []string) error {
	if len(args) != 2 {
		usageError("read requires ADDR and LEN")
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return qiprog.ArgumentError("invalid address %q: %s", args[0], err)
	}
	n, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return qiprog.ArgumentError("invalid length %q: %s", args[1], err)
	}

	dev, err := openFirst(ctx, hctx, ids)
	if err != nil {
		return err
	}
	defer dev.Close(ctx)

	buf := make([]byte, n)
	if _, err := dev.Read(ctx, uint32(addr), buf); err != nil {
		return err
	}
	hexdump(os.Stdout, uint32(addr), buf)
	return nil
}

func cmdWrite(ctx context.Context, hctx *host.Context, ids []qiprog.USBID, args []string, width int) error {
	if len(args) != 2 {
		usageError("write%d requires ADDR and VAL", width*8)
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return qiprog.ArgumentError("invalid address %q: %s", args[0], err)
	}
	val, err := strconv.ParseUint(args[1], 0, int(width*8))
	if err != nil {
		return qiprog.ArgumentError("invalid value %q: %s", args[1], err)
	}

	dev, err := openFirst(ctx, hctx, ids)
	if err != nil {
		return err
	}
	defer dev.Close(ctx)

	switch width {
	case 1:
		return dev.Write8(ctx, uint32(addr), uint8(val))
	case 2:
		return dev.Write16(ctx, uint32(addr), uint16(val))
	case 4:
		return dev.Write32(ctx, uint32(addr), uint32(val))
	}
	panic("unreachable")
}

// hexdump writes a classic 16-byte-per-line hex+ASCII dump of buf, with
// addresses labeled starting at base.
func hexdump(w *os.File, base uint32, buf []byte) {
	for off := 0; off < len(buf); off += 16 {
		end := off + 16
		if end > len(buf) {
			end = len(buf)
		}
		line := buf[off:end]

		fmt.Fprintf(w, "%08x: ", base+uint32(off))
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(w, "%02x ", line[i])
			} else {
				fmt.Fprint(w, "   ")
			}
			if i%4 == 3 {
				fmt.Fprint(w, " ")
			}
		}
		for _, b := range line {
			if 0x20 <= b && b < 0x80 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w)
	}
}
