package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// classifyNetError maps transport errors onto the named failure reasons.
// Errors that match none of them are returned unchanged.
func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNameLookup) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrDestinationUnreachable) {
		return err
	}

	var de *net.DNSError
	if errors.As(err, &de) {
		return fmt.Errorf("%w: %w", ErrNameLookup, err)
	}
	var ae *net.AddrError
	if errors.As(err, &ae) {
		return fmt.Errorf("%w: %w", ErrNameLookup, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %w", ErrDestinationUnreachable, err)
	}
	return err
}
