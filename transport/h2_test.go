package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func protoHandler(got *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(int32(r.ProtoMajor))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestHTTP_Cleartext(t *testing.T) {
	var proto atomic.Int32
	srv := httptest.NewServer(h2c.NewHandler(protoHandler(&proto), &http2.Server{}))
	defer srv.Close()

	h := newTestHTTP(t, HTTPConfig{BaseURL: srv.URL, HTTP2: HTTP2Cleartext})
	resp, err := h.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent || proto.Load() != 2 {
		t.Errorf("expected HTTP/2 204, got HTTP/%d %d", proto.Load(), resp.StatusCode)
	}
}

func TestHTTP_ForceHTTP2(t *testing.T) {
	var proto atomic.Int32
	srv := httptest.NewUnstartedServer(protoHandler(&proto))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	h := newTestHTTP(t, HTTPConfig{
		BaseURL: srv.URL,
		HTTP2:   HTTP2Force,
		TLS:     &TLSConfig{SkipVerify: true},
	})
	if _, err := h.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Load() != 2 {
		t.Errorf("expected HTTP/2, got HTTP/%d", proto.Load())
	}
}

func TestHTTP_AutoStaysOnHTTP1ForCleartext(t *testing.T) {
	var proto atomic.Int32
	srv := httptest.NewServer(protoHandler(&proto))
	defer srv.Close()

	h := newTestHTTP(t, HTTPConfig{BaseURL: srv.URL})
	if _, err := h.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Load() != 1 {
		t.Errorf("expected HTTP/1.x, got HTTP/%d", proto.Load())
	}
}
