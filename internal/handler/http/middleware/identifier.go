// Package middleware derives the caller identity used as the rate limit key.
//
// Identifiers are opaque strings of the form "ip:<address>". The package
// deliberately has no shared fallback bucket: a request whose address cannot
// be determined yields ErrNoIdentifier instead of being pooled with every
// other anonymous caller.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IdentifierPrefix marks identifiers derived from a network address.
const IdentifierPrefix = "ip:"

// ErrNoIdentifier is returned when no client address can be derived.
var ErrNoIdentifier = errors.New("client identifier could not be determined")

// IdentifierExtractor derives a rate limit identifier from an HTTP request.
type IdentifierExtractor interface {
	Identify(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP peer address. It is the default: the
// address cannot be spoofed by the client, so it is correct whenever the
// server is reached directly.
type RemoteAddrExtractor struct{}

// Identify returns "ip:" plus the host part of r.RemoteAddr.
//
// Examples:
//   - "192.168.1.1:54321" → "ip:192.168.1.1"
//   - "[2001:db8::1]:8080" → "ip:2001:db8::1"
//   - "127.0.0.1" → "ip:127.0.0.1" (no port)
func (e *RemoteAddrExtractor) Identify(r *http.Request) (string, error) {
	addr, err := addrFromRemote(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	return IdentifierPrefix + addr.String(), nil
}

// TrustedProxyConfig holds the reverse proxies whose forwarding headers are honored.
type TrustedProxyConfig struct {
	// Enabled indicates whether proxy trust is enabled.
	// When false, all header-based extraction is disabled.
	Enabled bool

	// AllowedCIDRs is a list of trusted proxy IP ranges.
	// Single IPs are stored as /32 or /128 prefixes.
	AllowedCIDRs []netip.Prefix
}

// NewTrustedProxyConfig builds a TrustedProxyConfig from the settings loaded
// by pkg/config (RATE_LIMIT_TRUST_PROXY and RATE_LIMIT_TRUSTED_PROXIES).
//
// Entries may be single addresses ("192.168.1.1") or CIDR ranges
// ("10.0.0.0/8", "2001:db8::/32"). Invalid configuration is an error so the
// process refuses to start instead of trusting the wrong peers.
func NewTrustedProxyConfig(enabled bool, proxies []string) (*TrustedProxyConfig, error) {
	config := &TrustedProxyConfig{Enabled: enabled}
	if !enabled {
		return config, nil
	}

	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			ip, ipErr := netip.ParseAddr(p)
			if ipErr != nil {
				return nil, fmt.Errorf("invalid IP or CIDR format '%s': must be valid IP address or CIDR notation (e.g., '192.168.1.1' or '10.0.0.0/8')", p)
			}
			prefix = netip.PrefixFrom(ip, ip.BitLen())
		}

		config.AllowedCIDRs = append(config.AllowedCIDRs, prefix.Masked())
	}

	if len(config.AllowedCIDRs) == 0 {
		return nil, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but RATE_LIMIT_TRUSTED_PROXIES is empty")
	}

	return config, nil
}

// IsTrusted reports whether remoteAddr ("IP:port" or "IP") is a trusted proxy.
func (c *TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	addr, err := addrFromRemote(remoteAddr)
	if err != nil {
		return false
	}

	for _, prefix := range c.AllowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// TrustedProxyExtractor reads X-Forwarded-For or X-Real-IP when the request
// arrives from a trusted proxy, and the TCP peer address otherwise.
//
// Header priority for trusted peers:
//  1. X-Forwarded-For (first address in the list)
//  2. X-Real-IP
//  3. RemoteAddr (headers missing or malformed)
//
// Headers from untrusted peers are ignored, which stops clients from
// rotating their apparent address to escape their quota.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
	logger *slog.Logger
}

// NewTrustedProxyExtractor creates a new TrustedProxyExtractor with the given configuration.
func NewTrustedProxyExtractor(config TrustedProxyConfig, logger *slog.Logger) *TrustedProxyExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustedProxyExtractor{config: config, logger: logger}
}

// Identify implements IdentifierExtractor.
func (e *TrustedProxyExtractor) Identify(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return (&RemoteAddrExtractor{}).Identify(r)
	}

	if !e.config.IsTrusted(r.RemoteAddr) {
		if r.Header.Get("X-Forwarded-For") != "" || r.Header.Get("X-Real-IP") != "" {
			e.logger.Warn("ignoring forwarding headers from untrusted peer",
				slog.String("remote_addr", r.RemoteAddr))
		}
		return (&RemoteAddrExtractor{}).Identify(r)
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if addr, ok := parseFirstIP(xff); ok {
			return IdentifierPrefix + addr.String(), nil
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return IdentifierPrefix + addr.Unmap().String(), nil
		}
	}

	return (&RemoteAddrExtractor{}).Identify(r)
}

// NewExtractor returns a TrustedProxyExtractor when proxy trust is enabled
// and a RemoteAddrExtractor otherwise.
func NewExtractor(config *TrustedProxyConfig, logger *slog.Logger) IdentifierExtractor {
	if config == nil || !config.Enabled {
		return &RemoteAddrExtractor{}
	}
	return NewTrustedProxyExtractor(*config, logger)
}

// addrFromRemote parses "host:port" or a bare IP. IPv4-mapped IPv6
// addresses are unmapped so one client never has two identifiers.
func addrFromRemote(remote string) (netip.Addr, error) {
	if remote == "" {
		return netip.Addr{}, ErrNoIdentifier
	}

	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = strings.Trim(remote, "[]")
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: invalid address %q", ErrNoIdentifier, remote)
	}
	return addr.WithZone("").Unmap(), nil
}

// parseFirstIP parses the first address of a comma-separated
// X-Forwarded-For list ("client, proxy1, proxy2").
func parseFirstIP(s string) (netip.Addr, bool) {
	first, _, _ := strings.Cut(s, ",")
	addr, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
