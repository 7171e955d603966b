// File: transport/udp/portrange.go
// Author: momentics <momentics@gmail.com>

package udp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/momentics/hioload-udp/api"
)

// PortRange is an inclusive range of ports.
type PortRange struct {
	Lower int
	Upper int
}

// NewPortRange validates 1 <= lower <= upper <= 65535.
func NewPortRange(lower, upper int) (PortRange, error) {
	if lower < 1 || upper > 0xffff || lower > upper {
		return PortRange{}, fmt.Errorf("port range %d:%d: %w", lower, upper, api.ErrInvalidArgument)
	}
	return PortRange{Lower: lower, Upper: upper}, nil
}

// ParsePortRange accepts "port" or "lower:upper".
func ParsePortRange(s string) (PortRange, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), ":")
	lower, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return PortRange{}, fmt.Errorf("port range %q: %w", s, api.ErrInvalidArgument)
	}
	if !found {
		return NewPortRange(lower, lower)
	}
	upper, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return PortRange{}, fmt.Errorf("port range %q: %w", s, api.ErrInvalidArgument)
	}
	return NewPortRange(lower, upper)
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int { return r.Upper - r.Lower + 1 }

func (r PortRange) String() string {
	return fmt.Sprintf("%d:%d", r.Lower, r.Upper)
}
