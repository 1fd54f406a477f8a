package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProber_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	out := NewHTTPProber().Probe(context.Background(), s.URL, 2*time.Second)
	if out.Err != nil {
		t.Fatalf("want no error, got %v", out.Err)
	}
	if out.Replies != 1 {
		t.Fatalf("want 1 reply, got %d", out.Replies)
	}
	if out.RTT <= 0 {
		t.Fatalf("rtt should be > 0, got %s", out.RTT)
	}
}

func TestHTTPProber_Status500IsNoReply(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out := NewHTTPProber().Probe(context.Background(), s.URL, 2*time.Second)
	if out.Err != nil {
		t.Fatalf("want no error, got %v", out.Err)
	}
	if out.Replies != 0 {
		t.Fatalf("want 0 replies, got %d", out.Replies)
	}
}

func TestHTTPProber_RedirectNotFollowed(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://elsewhere.invalid/", http.StatusFound)
	}))
	defer s.Close()

	out := NewHTTPProber().Probe(context.Background(), s.URL, 2*time.Second)
	if out.Err != nil || out.Replies != 1 {
		t.Fatalf("want redirect to count as reply, got %+v", out)
	}
}

func TestHTTPProber_Timeout(t *testing.T) {
	// Server sleeps longer than the probe timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	out := NewHTTPProber().Probe(context.Background(), s.URL, 50*time.Millisecond)
	if !errors.Is(out.Err, ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %+v", out)
	}
}

func TestHTTPProber_BadURL(t *testing.T) {
	out := NewHTTPProber().Probe(context.Background(), "://nope", time.Second)
	if out.Err == nil {
		t.Fatalf("want error for malformed url")
	}
}
