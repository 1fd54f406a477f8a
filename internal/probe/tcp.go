package probe

import (
	"context"
	"net"
	"time"
)

// TCPProber counts a completed TCP handshake as one reply.
type TCPProber struct {
	Dialer net.Dialer
}

func NewTCPProber() *TCPProber {
	return &TCPProber{}
}

func (p *TCPProber) Probe(ctx context.Context, address string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.Dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Result{Err: classifyNetError(err)}
	}
	rtt := time.Since(start)
	_ = conn.Close()
	return Result{Replies: 1, RTT: rtt}
}
