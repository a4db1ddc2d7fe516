package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/pingmon/pkg/ping"
)

const linuxReply = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=14.3 ms

--- 8.8.8.8 ping statistics ---
1 packets transmitted, 1 received, 0% packet loss, time 0ms
rtt min/avg/max/mdev = 14.312/14.312/14.312/0.000 ms
`

const busyboxReply = `PING 1.1.1.1 (1.1.1.1): 56 data bytes
64 bytes from 1.1.1.1: seq=0 ttl=57 time=9.012 ms
`

const noReply = `PING 10.255.255.1 (10.255.255.1) 56(84) bytes of data.

--- 10.255.255.1 ping statistics ---
1 packets transmitted, 0 received, 100% packet loss, time 0ms
`

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want float64
		ok   bool
	}{
		{"linux", linuxReply, 14.3, true},
		{"busybox", busyboxReply, 9.012, true},
		{"sub millisecond", "64 bytes from ::1: icmp_seq=1 ttl=64 time<1 ms\n", 1, true},
		{"integer", "reply time=23 ms", 23, true},
		{"slow reply clamps to lost", "reply time=1500.2 ms", ping.LostThreshold, true},
		{"no reply", noReply, 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOutput([]byte(tt.out))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestProber(out string, err error) (*CommandProber, *[]string) {
	var args []string
	p := NewCommandProber("8.8.8.8", 2*time.Second, nil)
	p.now = func() time.Time { return time.Unix(1536062893, 0) }
	p.run = func(ctx context.Context, name string, a ...string) ([]byte, error) {
		args = append([]string{name}, a...)
		return []byte(out), err
	}
	return p, &args
}

func TestProbe_Reply(t *testing.T) {
	p, args := newTestProber(linuxReply, nil)

	s := p.Probe(context.Background())
	assert.Equal(t, ping.Sample{Time: 1536062893, Latency: 14.3}, s)
	assert.Equal(t, []string{"ping", "-c", "1", "-w", "2", "8.8.8.8"}, *args)
}

func TestProbe_CommandFailure(t *testing.T) {
	p, _ := newTestProber(noReply, errors.New("exit status 1"))

	s := p.Probe(context.Background())
	assert.True(t, s.Lost())
	assert.Equal(t, int64(1536062893), s.Time)
}

func TestProbe_GarbageOutput(t *testing.T) {
	p, _ := newTestProber("ping: unknown host", nil)
	assert.Equal(t, ping.LostThreshold, p.Probe(context.Background()).Latency)
}

func TestNewCommandProber_MinimumTimeout(t *testing.T) {
	p := NewCommandProber("localhost", 10*time.Millisecond, nil)
	require.Equal(t, time.Second, p.timeout)
}
