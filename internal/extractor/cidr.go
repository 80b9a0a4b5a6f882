package extractor

import (
	"net/netip"
	"strings"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func compileCIDR(body string) (matchFn, error) {
	var ranges []netip.Prefix
	if strings.TrimSpace(body) != "" {
		for _, part := range strings.Split(body, ",") {
			prefix, err := parsePrefix(strings.TrimSpace(part))
			if err != nil {
				return nil, invalidf("cidr %q: %v", part, err)
			}
			ranges = append(ranges, prefix)
		}
	}

	return func(input string) Result {
		prefix, err := parsePrefix(strings.TrimSpace(input))
		if err != nil {
			return NoMatch
		}
		if len(ranges) > 0 && !containedIn(prefix.Addr(), ranges) {
			return NoMatch
		}
		return matched(prefixValue(prefix))
	}, nil
}

// parsePrefix accepts either a CIDR or a bare address, which is treated as
// a single-host prefix.
func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func containedIn(addr netip.Addr, ranges []netip.Prefix) bool {
	for _, r := range ranges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

func prefixValue(prefix netip.Prefix) value.Value {
	addr := prefix.Addr().AsSlice()
	octets := make(value.Array, len(addr))
	mask := make(value.Array, len(addr))

	bits := prefix.Bits()
	for i, b := range addr {
		octets[i] = value.Int(b)
		switch {
		case bits >= 8:
			mask[i] = value.Int(0xff)
			bits -= 8
		case bits > 0:
			mask[i] = value.Int(0xff << (8 - bits) & 0xff)
			bits = 0
		default:
			mask[i] = value.Int(0)
		}
	}

	return value.ObjectOf(
		value.Field{Key: "prefix", Value: octets},
		value.Field{Key: "mask", Value: mask},
	)
}
