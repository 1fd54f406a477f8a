package probe

import (
	"fmt"

	"github.com/hamed0406/pingprobe/internal/domain"
)

// Set holds one prober per target kind, each wrapped in a Guard.
type Set struct {
	probers map[domain.Kind]Prober
}

func NewSet(privileged bool) *Set {
	return &Set{probers: map[domain.Kind]Prober{
		domain.KindPing: NewGuard(NewICMPProber(privileged)),
		domain.KindTCP:  NewGuard(NewTCPProber()),
		domain.KindHTTP: NewGuard(NewHTTPProber()),
	}}
}

// ForKind returns the prober for k.
func (s *Set) ForKind(k domain.Kind) (Prober, error) {
	p, ok := s.probers[k]
	if !ok {
		return nil, fmt.Errorf("no prober for kind %q", k)
	}
	return p, nil
}
