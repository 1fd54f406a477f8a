package probe

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// ICMPProber sends a single echo request per probe.
//
// pro-bing only reads echo replies. In privileged mode a second raw socket
// watches for a destination-unreachable message quoting our echo. Unprivileged
// mode uses UDP ICMP sockets (net.ipv4.ping_group_range on Linux), which cannot
// see those messages, so there only local routing failures on send become
// ErrDestinationUnreachable and a remote unreachable reads as zero replies.
//
// A run that times out without a reply is not an error: it reports zero replies.
type ICMPProber struct {
	Privileged bool
}

func NewICMPProber(privileged bool) *ICMPProber {
	return &ICMPProber{Privileged: privileged}
}

func (p *ICMPProber) Probe(ctx context.Context, address string, timeout time.Duration) Result {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %w", ErrNameLookup, err)}
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	unreachable := make(chan struct{})
	if p.Privileged {
		dst := pinger.IPAddr().IP
		// on failure pro-bing's own raw socket fails the same way below
		if conn, err := listenICMP(dst); err == nil {
			defer conn.Close()
			go watchUnreachable(conn, dst, pinger.ID(), unreachable, pinger.Stop)
		}
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		return Result{Err: classifyNetError(err)}
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		select {
		case <-unreachable:
			return Result{Err: fmt.Errorf("%w: icmp destination unreachable for %s", ErrDestinationUnreachable, address)}
		default:
		}
	}
	return Result{Replies: stats.PacketsRecv, RTT: stats.MinRtt}
}

func listenICMP(dst net.IP) (*icmp.PacketConn, error) {
	if dst.To4() != nil {
		return icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	}
	return icmp.ListenPacket("ip6:ipv6-icmp", "::")
}

// watchUnreachable reads conn until it is closed or a matching
// destination-unreachable arrives, in which case it closes hit and calls stop.
func watchUnreachable(conn *icmp.PacketConn, dst net.IP, id int, hit chan<- struct{}, stop func()) {
	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if unreachableFor(buf[:n], dst, id) {
			close(hit)
			stop()
			return
		}
	}
}

// unreachableFor reports whether msg, one ICMP message read from a raw
// socket, says the echo request with id sent to dst could not be delivered.
func unreachableFor(msg []byte, dst net.IP, id int) bool {
	v4 := dst.To4() != nil
	proto := protocolIPv6ICMP
	if v4 {
		proto = protocolICMP
		msg = trimIPv4Header(msg)
	}

	m, err := icmp.ParseMessage(proto, msg)
	if err != nil {
		return false
	}
	if m.Type != ipv4.ICMPTypeDestinationUnreachable && m.Type != ipv6.ICMPTypeDestinationUnreachable {
		return false
	}
	body, ok := m.Body.(*icmp.DstUnreach)
	if !ok {
		return false
	}

	var (
		quotedDst net.IP
		echo      []byte
		echoType  byte
	)
	if v4 {
		h, err := ipv4.ParseHeader(body.Data)
		if err != nil || h.Protocol != protocolICMP {
			return false
		}
		quotedDst, echo, echoType = h.Dst, body.Data[h.Len:], byte(ipv4.ICMPTypeEcho)
	} else {
		h, err := ipv6.ParseHeader(body.Data)
		if err != nil || h.NextHeader != protocolIPv6ICMP {
			return false
		}
		quotedDst, echo, echoType = h.Dst, body.Data[ipv6.HeaderLen:], byte(ipv6.ICMPTypeEchoRequest)
	}

	// type, code, checksum, id, seq
	if len(echo) < 8 || echo[0] != echoType {
		return false
	}
	return quotedDst.Equal(dst) && int(binary.BigEndian.Uint16(echo[4:6])) == id
}

// trimIPv4Header drops a leading IPv4 header some platforms leave on raw reads.
func trimIPv4Header(b []byte) []byte {
	if len(b) < ipv4.HeaderLen || b[0]>>4 != ipv4.Version {
		return b
	}
	hl := int(b[0]&0x0f) << 2
	if hl < ipv4.HeaderLen || hl > len(b) {
		return b
	}
	return b[hl:]
}
