package utils

import (
	"net"
	"strings"
)

// IsLoopbackHost reports whether host names a loopback address.
// "localhost" counts; hostnames are not resolved.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(strings.TrimSpace(host), "localhost") {
		return true
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	return ip != nil && ip.IsLoopback()
}

// SplitHostIP extracts the bare IP from a remote "host:port" address.
func SplitHostIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
