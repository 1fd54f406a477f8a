package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPProber treats a response below 400 as one reply.
type HTTPProber struct {
	Client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{
			// never follow into another host's latency
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

func (h *HTTPProber) Probe(ctx context.Context, target string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Err: err}
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{Err: classifyNetError(err)}
	}
	rtt := time.Since(start)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{Replies: 0}
	}
	return Result{Replies: 1, RTT: rtt}
}
