package http

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig lists the proxies whose forwarding headers are believed. Entries
// are CIDR ranges or single addresses.
type IPConfig struct {
	TrustedProxies []string
}

// Validate reports the first entry that is neither a CIDR range nor an address
func (c *IPConfig) Validate() error {
	if c == nil {
		return nil
	}
	for _, entry := range c.TrustedProxies {
		if _, ok := parsePrefix(entry); !ok {
			return fmt.Errorf("invalid trusted proxy %q", entry)
		}
	}
	return nil
}

// ExtractClientIP returns the address of the client behind any trusted
// proxies. Forwarding headers are read only when the peer itself is trusted.
// X-Forwarded-For is walked right to left and the first hop that is not a
// trusted proxy wins, so a client cannot prepend a forged address.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := remoteAddr(r)
	if config == nil || len(config.TrustedProxies) == 0 {
		return peer
	}

	trusted := config.prefixes()
	if !containsAddr(trusted, peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			addr, err := netip.ParseAddr(hop)
			if err != nil {
				break
			}
			if !containsAddr(trusted, hop) {
				return addr.Unmap().String()
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}

	return peer
}

// remoteAddr strips the port from RemoteAddr
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (c *IPConfig) prefixes() []netip.Prefix {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if p, ok := parsePrefix(entry); ok {
			out = append(out, p)
		}
	}
	return out
}

func parsePrefix(entry string) (netip.Prefix, bool) {
	entry = strings.TrimSpace(entry)
	if p, err := netip.ParsePrefix(entry); err == nil {
		return p.Masked(), true
	}
	if addr, err := netip.ParseAddr(entry); err == nil {
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), true
	}
	return netip.Prefix{}, false
}

func containsAddr(prefixes []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
