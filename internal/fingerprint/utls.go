package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello the search client presents.
type Profile string

const (
	ProfileGo      Profile = "go" // crypto/tls, the default
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
)

// ParseProfile maps a config value onto a Profile. Empty means ProfileGo.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProfileGo, nil
	case ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari:
		return p, nil
	default:
		return "", fmt.Errorf("fingerprint: unknown profile %q", s)
	}
}

func (p Profile) helloID() (utls.ClientHelloID, bool) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, true
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, true
	case ProfileSafari:
		return utls.HelloIOS_Auto, true
	default:
		return utls.ClientHelloID{}, false
	}
}

// Transport returns a RoundTripper for outbound API calls. proxyURL is
// optional; when empty the environment proxy settings apply.
func Transport(p Profile, proxyURL string) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("fingerprint: parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	if p == "" || p == ProfileGo {
		return transport, nil
	}

	helloID, ok := p.helloID()
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	// uTLS negotiates ALPN itself; keep the transport on HTTP/1.1 so the
	// negotiated protocol always matches what net/http speaks.
	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn := utls.UClient(tcpConn, &utls.Config{
			ServerName: host,
			NextProtos: []string{"http/1.1"},
		}, helloID)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}
