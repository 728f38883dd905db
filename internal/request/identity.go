package request

import (
	"net"
	"net/http"
	"strings"

	"go.pilab.hu/sessiongate/domain"
)

// Resolver derives the per-request client identity (IP address and platform
// classification) from transport metadata. It is injected into the gate and
// the API handlers rather than read from ambient state.
type Resolver struct {
	// CDNHosts lists Host header suffixes served through a CDN. For those,
	// the CDN appends its own hop to X-Forwarded-For and the real client is
	// the second-to-last entry instead of the last one.
	CDNHosts []string
}

// NewResolver creates a Resolver.
func NewResolver(cdnHosts []string) *Resolver {
	return &Resolver{CDNHosts: cdnHosts}
}

// ClientIP resolves the originating client address, honoring proxy and CDN
// forwarding-header precedence and falling back to the socket peer address.
func (r *Resolver) ClientIP(req *http.Request) string {
	forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For"))
	if forwarded == "" || strings.EqualFold(forwarded, "unknown") {
		return remoteIP(req)
	}

	hops := strings.Split(forwarded, ",")
	for i := range hops {
		hops[i] = strings.TrimSpace(hops[i])
	}
	if len(hops) == 1 {
		return hops[0]
	}

	if r.fromCDN(req) {
		return hops[len(hops)-2]
	}
	return hops[len(hops)-1]
}

// Platform classifies the client device from the User-Agent header.
func (r *Resolver) Platform(req *http.Request) domain.Platform {
	ua := req.Header.Get("User-Agent")
	switch {
	case strings.Contains(ua, "MicroMessenger"):
		return domain.PlatformApplet
	case strings.Contains(ua, "Android"):
		return domain.PlatformAndroid
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return domain.PlatformIOS
	case strings.Contains(ua, "Mobile"):
		return domain.PlatformH5
	default:
		return domain.PlatformPC
	}
}

func (r *Resolver) fromCDN(req *http.Request) bool {
	host := req.Host
	for _, cdn := range r.CDNHosts {
		if strings.Contains(host, cdn) {
			return true
		}
	}
	return false
}

func remoteIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// IsInnerIP reports whether an address belongs to a private network or the
// loopback range.
func IsInnerIP(address string) bool {
	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback()
}
