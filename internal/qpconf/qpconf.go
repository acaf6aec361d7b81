// Package qpconf loads cmd/qiprogctl's configuration file, the way
// ipp-usb's conf.go loads ipp-usb.conf — except the parsing itself goes
// through gopkg.in/ini.v1 rather than ipp-usb's own hand-rolled inifile.go,
// since QiProg has no quirks database or multi-file merge logic that would
// justify carrying that parser forward (see DESIGN.md). Nothing in the
// protocol engine (internal/leu, qiprog, qiprog/cursor, qiprog/pipeline,
// qiprog/host, qiprog/firmware) reads this package; it exists purely for
// the CLI exerciser, matching spec.md §2's description of configuration as
// ambient, not core.
package qpconf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/qiprog/qiprog/internal/qplog"
	"github.com/qiprog/qiprog/qiprog"
)

// FileName is the configuration file's conventional name, paralleling
// ipp-usb's ConfFileName.
const FileName = "qiprog.conf"

// Config is cmd/qiprogctl's tunable configuration.
type Config struct {
	// WireTimeout is the configured per-wire-operation timeout (spec.md
	// §5, "default 3000 ms per wire operation"). Load reads it, but
	// cmd/qiprogctl does not pass it on: gousbtransport bounds each wire
	// operation with its own fixed WireTimeout constant.
	WireTimeout time.Duration

	// USBIDs overrides the default VID/PID scanned for (spec.md §4.3,
	// §6). Empty means qiprog.DefaultUSBID only.
	USBIDs []qiprog.USBID

	// LogLevel is the console log level mask.
	LogLevel qplog.LogLevel

	// ColorConsole enables ANSI colors on the console logger.
	ColorConsole bool
}

// Default returns the built-in configuration used when no configuration
// file is present, mirroring ipp-usb's package-level Conf defaults.
func Default() Config {
	return Config{
		WireTimeout:  3000 * time.Millisecond,
		LogLevel:     qplog.LogInfo | qplog.LogError,
		ColorConsole: true,
	}
}

// Load reads path (an ini.v1-format file) over Default()'s values. A
// missing file is not an error; Load returns the defaults unchanged, the
// same as ipp-usb's confLoadInternal treats os.IsNotExist.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, fmt.Errorf("qpconf: %s: %w", path, err)
	}

	sec := f.Section("wire")
	if k, err := sec.GetKey("timeout-ms"); err == nil {
		ms, convErr := k.Int()
		if convErr != nil || ms <= 0 {
			return cfg, fmt.Errorf("qpconf: %s: wire.timeout-ms: must be a positive integer", path)
		}
		cfg.WireTimeout = time.Duration(ms) * time.Millisecond
	}
	if k, err := sec.GetKey("usb-ids"); err == nil && k.String() != "" {
		ids, parseErr := parseUSBIDs(k.String())
		if parseErr != nil {
			return cfg, fmt.Errorf("qpconf: %s: wire.usb-ids: %w", path, parseErr)
		}
		cfg.USBIDs = ids
	}

	sec = f.Section("logging")
	if k, err := sec.GetKey("console-log"); err == nil && k.String() != "" {
		level, parseErr := parseLogLevel(k.String())
		if parseErr != nil {
			return cfg, fmt.Errorf("qpconf: %s: logging.console-log: %w", path, parseErr)
		}
		cfg.LogLevel = level
	}
	if k, err := sec.GetKey("console-color"); err == nil {
		cfg.ColorConsole = k.MustBool(cfg.ColorConsole)
	}

	return cfg, nil
}

// parseUSBIDs parses a comma-separated "vvvv:pppp,vvvv:pppp" list into
// USBID pairs, the hexadecimal VID:PID notation lsusb and the QiProg CLI
// both use.
func parseUSBIDs(s string) ([]qiprog.USBID, error) {
	var ids []qiprog.USBID
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid usb id %q: want vvvv:pppp", entry)
		}
		vendor, err := strconv.ParseUint(parts[0], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid vendor id %q: %w", parts[0], err)
		}
		product, err := strconv.ParseUint(parts[1], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", parts[1], err)
		}
		ids = append(ids, qiprog.USBID{Vendor: uint16(vendor), Product: uint16(product)})
	}
	return ids, nil
}

// parseLogLevel parses a comma-separated level list ("error", "info",
// "debug", "trace-usb", "all"), the same vocabulary and inclusion rule
// ipp-usb's confLoadLogLevelKey uses for its own log levels.
func parseLogLevel(s string) (qplog.LogLevel, error) {
	var mask qplog.LogLevel
	for _, tok := range strings.Split(s, ",") {
		switch strings.TrimSpace(tok) {
		case "":
		case "error":
			mask |= qplog.LogError
		case "info":
			mask |= qplog.LogInfo | qplog.LogError
		case "debug":
			mask |= qplog.LogDebug | qplog.LogInfo | qplog.LogError
		case "trace-usb":
			mask |= qplog.LogTraceUSB | qplog.LogDebug | qplog.LogInfo | qplog.LogError
		case "all":
			mask |= qplog.LogAll
		default:
			return 0, fmt.Errorf("invalid log level %q", tok)
		}
	}
	return mask, nil
}
