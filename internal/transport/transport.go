// Package transport builds the outbound HTTP transport used to reach the
// checkout engine.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
)

// =============================================================================
// BROWSER FINGERPRINT TRANSPORT
// =============================================================================
//
// Engines fronted by bot-protecting CDNs rate limit Go's default TLS
// fingerprint. When a fingerprint is configured the transport dials with
// uTLS and a browser ClientHello, then speaks HTTP/2 or HTTP/1.1 depending on
// what ALPN negotiated. The negotiated protocol is remembered per host.
//
// =============================================================================

// Fingerprints accepted by New. Empty selects the standard library TLS stack.
const (
	FingerprintNone    = ""
	FingerprintChrome  = "chrome"
	FingerprintFirefox = "firefox"
	FingerprintSafari  = "safari"
)

// DialTimeout bounds connection setup including the TLS handshake.
const DialTimeout = 10 * time.Second

var errHTTP1Only = errors.New("server did not negotiate h2")

// New returns the engine transport for fingerprint, instrumented with otelhttp.
func New(fingerprint string) (http.RoundTripper, error) {
	base, err := newBase(fingerprint)
	if err != nil {
		return nil, err
	}
	return otelhttp.NewTransport(base), nil
}

func newBase(fingerprint string) (http.RoundTripper, error) {
	fingerprint = strings.ToLower(strings.TrimSpace(fingerprint))
	if fingerprint == FingerprintNone || fingerprint == "none" {
		return http.DefaultTransport.(*http.Transport).Clone(), nil
	}
	hello, ok := helloIDs[fingerprint]
	if !ok {
		return nil, fmt.Errorf("unsupported TLS fingerprint %q", fingerprint)
	}
	return NewFingerprintTransport(hello), nil
}

var helloIDs = map[string]utls.ClientHelloID{
	FingerprintChrome:  utls.HelloChrome_Auto,
	FingerprintFirefox: utls.HelloFirefox_Auto,
	FingerprintSafari:  utls.HelloSafari_Auto,
}

// FingerprintTransport presents a browser TLS fingerprint to upstream servers.
type FingerprintTransport struct {
	hello  utls.ClientHelloID
	dialer *net.Dialer
	h2     *http2.Transport
	h1     *http.Transport

	mu    sync.RWMutex
	h1Set map[string]bool // hosts known not to speak h2
}

// NewFingerprintTransport creates a transport dialing with the given ClientHello.
func NewFingerprintTransport(hello utls.ClientHelloID) *FingerprintTransport {
	t := &FingerprintTransport{
		hello:  hello,
		dialer: &net.Dialer{Timeout: DialTimeout, KeepAlive: 30 * time.Second},
		h1Set:  make(map[string]bool),
	}

	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			conn, err := t.dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if conn.ConnectionState().NegotiatedProtocol != http2.NextProtoTLS {
				conn.Close()
				return nil, errHTTP1Only
			}
			return conn, nil
		},
	}

	t.h1 = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return t.dial(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return t
}

// RoundTrip implements http.RoundTripper.
// Plain HTTP goes straight to HTTP/1.1. HTTPS tries h2 unless the host is
// known to lack it; an h2 dial that negotiates http/1.1 marks the host and
// retries over HTTP/1.1 before any bytes of the request are sent.
func (t *FingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" || t.isHTTP1(req.URL.Host) {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if !errors.Is(err, errHTTP1Only) {
		return resp, err
	}

	t.markHTTP1(req.URL.Host)
	if req.Body != nil && req.GetBody != nil {
		body, gerr := req.GetBody()
		if gerr != nil {
			return nil, gerr
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

// CloseIdleConnections closes idle connections on both protocol transports.
func (t *FingerprintTransport) CloseIdleConnections() {
	t.h2.CloseIdleConnections()
	t.h1.CloseIdleConnections()
}

func (t *FingerprintTransport) isHTTP1(host string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.h1Set[host]
}

func (t *FingerprintTransport) markHTTP1(host string) {
	t.mu.Lock()
	t.h1Set[host] = true
	t.mu.Unlock()
}

// dial establishes a TLS connection with the configured browser fingerprint.
func (t *FingerprintTransport) dial(ctx context.Context, network, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := t.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, t.hello)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
