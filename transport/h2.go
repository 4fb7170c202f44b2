package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"slices"

	"golang.org/x/net/http2"
)

// HTTP/2 modes for HTTPConfig.HTTP2.
const (
	// HTTP2Auto lets net/http negotiate HTTP/2 over TLS via ALPN.
	HTTP2Auto = "auto"
	// HTTP2Force speaks only HTTP/2 over TLS.
	HTTP2Force = "force"
	// HTTP2Cleartext speaks HTTP/2 with prior knowledge over plain TCP (h2c).
	HTTP2Cleartext = "h2c"
)

var http2Modes = []string{HTTP2Auto, HTTP2Force, HTTP2Cleartext}

// roundTripper builds the round tripper for the configured HTTP/2 mode.
func roundTripper(cfg HTTPConfig, tlsCfg *tls.Config) http.RoundTripper {
	switch cfg.HTTP2 {
	case HTTP2Force:
		return &http2.Transport{
			TLSClientConfig: tlsCfg,
			ReadIdleTimeout: cfg.Timeout,
		}
	case HTTP2Cleartext:
		return &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
			ReadIdleTimeout: cfg.Timeout,
		}
	default:
		rt := http.DefaultTransport.(*http.Transport).Clone()
		if tlsCfg != nil {
			rt.TLSClientConfig = tlsCfg
		}
		return rt
	}
}

func validateHTTP2Mode(mode string) error {
	if !slices.Contains(http2Modes, mode) {
		return fmt.Errorf("transport: http2 must be one of %v (got: %s)", http2Modes, mode)
	}
	return nil
}
