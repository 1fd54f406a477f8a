package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyNetError(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"dns", &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}}, ErrNameLookup},
		{"addr", &net.AddrError{Err: "missing port", Addr: "x"}, ErrNameLookup},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"os deadline", &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}, ErrTimeout},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, ErrDestinationUnreachable},
		{"host unreachable", &net.OpError{Op: "write", Err: os.NewSyscallError("sendto", syscall.EHOSTUNREACH)}, ErrDestinationUnreachable},
		{"net unreachable", os.NewSyscallError("sendto", syscall.ENETUNREACH), ErrDestinationUnreachable},
		{"already named", ErrTimeout, ErrTimeout},
		{"other", boom, boom},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyNetError(c.in)
			require.True(t, errors.Is(got, c.want), "got %v", got)
		})
	}
	require.NoError(t, classifyNetError(nil))
}

func TestClassifyNetError_KeepsDetail(t *testing.T) {
	in := &net.DNSError{Err: "no such host", Name: "x.invalid"}
	got := classifyNetError(in)

	var de *net.DNSError
	require.True(t, errors.As(got, &de))
	require.Equal(t, "x.invalid", de.Name)
}
