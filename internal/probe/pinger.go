package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// Pinger checks liveness with one ICMP echo via the system ping binary.
// A non-zero exit, a timeout, or a failure to launch the binary all read as
// unreachable; Check never returns an error.
type Pinger struct {
	Timeout time.Duration
}

func NewPinger(timeout time.Duration) *Pinger {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Pinger{Timeout: timeout}
}

func (p *Pinger) Check(ctx context.Context, addr string) bool {
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "ping", pingArgs(p.Timeout, addr)...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

func pingArgs(timeout time.Duration, addr string) []string {
	if runtime.GOOS == "windows" {
		ms := int(timeout / time.Millisecond)
		return []string{"-n", "1", "-w", strconv.Itoa(ms), addr}
	}
	sec := int(timeout / time.Second)
	if sec < 1 {
		sec = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(sec), addr}
}
