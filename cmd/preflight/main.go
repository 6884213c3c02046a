// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hamed0406/outagemon/internal/config"
	"github.com/hamed0406/outagemon/internal/devices"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fail(err.Error())
	}

	devs, err := devices.Load(cfg.DevicesCSV)
	if err != nil {
		fail("device list unusable (the monitor will refuse to start): " + err.Error())
	}
	ok(fmt.Sprintf("%d devices loaded from %s", len(devs), cfg.DevicesCSV))

	if _, err := exec.LookPath("ping"); err != nil {
		warn("ping binary not on PATH — every probe will read as unreachable")
	} else {
		ok("ping binary found")
	}

	if err := os.MkdirAll(cfg.OutagesDir, 0o755); err != nil {
		fail("outages directory not writable: " + err.Error())
	}
	ok("outages directory " + cfg.OutagesDir)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty — daily ledgers go to JSON files under " + cfg.OutagesDir)
	} else {
		ok("DATABASE_URL present")
	}

	if cfg.APIAddr == "" {
		warn("API_ADDR empty — status API disabled")
	} else {
		ok("API_ADDR=" + cfg.APIAddr)
	}

	ok("preflight passed")
}
