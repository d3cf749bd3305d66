package gate

import (
	"net"
	"strings"
)

// MaskIP redacts an address for logging: the last two octets of IPv4, the trailing
// characters of anything else.
func MaskIP(ip string) string {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
		parts := strings.Split(parsed.To4().String(), ".")
		return parts[0] + "." + parts[1] + ".x.x"
	}
	if len(ip) <= 4 {
		return strings.Repeat("*", len(ip))
	}
	keep := len(ip) / 2
	return ip[:keep] + strings.Repeat("*", len(ip)-keep)
}
