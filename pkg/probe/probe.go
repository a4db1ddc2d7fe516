// Package probe measures round trip latency to a host with the system ping
// command.
package probe

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nicktill/pingmon/pkg/logging"
	"github.com/nicktill/pingmon/pkg/ping"
)

// Prober takes one latency sample.
type Prober interface {
	Probe(ctx context.Context) ping.Sample
}

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandProber runs `ping -c 1 -w <timeout> <host>` once per probe.
type CommandProber struct {
	host    string
	timeout time.Duration
	now     func() time.Time
	run     runFunc
	logger  log.Logger
}

// NewCommandProber creates a prober for host. A timeout under one second is
// rounded up to one, the smallest deadline ping accepts.
func NewCommandProber(host string, timeout time.Duration, logger log.Logger) *CommandProber {
	if timeout < time.Second {
		timeout = time.Second
	}
	return &CommandProber{
		host:    host,
		timeout: timeout,
		now:     time.Now,
		run:     runCommand,
		logger:  logging.OrNop(logger),
	}
}

// Probe returns a sample stamped with the time the probe started. Any failure
// (no reply, command error, unparsable output) yields the lost sentinel.
func (p *CommandProber) Probe(ctx context.Context) ping.Sample {
	start := p.now().Unix()
	secs := strconv.Itoa(int(p.timeout.Round(time.Second) / time.Second))

	// ping's own deadline plus slack for process startup
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	out, err := p.run(ctx, "ping", "-c", "1", "-w", secs, p.host)
	if err != nil {
		level.Debug(p.logger).Log("msg", "ping failed", "host", p.host, "err", err)
		return ping.Sample{Time: start, Latency: ping.LostThreshold}
	}

	latency, ok := ParseOutput(out)
	if !ok {
		level.Warn(p.logger).Log("msg", "unrecognised ping output", "host", p.host)
		return ping.Sample{Time: start, Latency: ping.LostThreshold}
	}
	return ping.Sample{Time: start, Latency: latency}
}

var timeRe = regexp.MustCompile(`time[=<]\s*([0-9]+(?:\.[0-9]+)?)\s*ms`)

// ParseOutput extracts the round trip time in milliseconds from ping output.
// Replies at or above the lost threshold are reported as lost.
func ParseOutput(out []byte) (float64, bool) {
	m := timeRe.FindSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, false
	}
	if v >= ping.LostThreshold {
		v = ping.LostThreshold
	}
	return v, true
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}
