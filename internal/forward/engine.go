// Package forward implements the gateway's request path: choose the healthiest peer, relay the request
// through the peer's SOCKS5 endpoint and feed the outcome back into the health table.
package forward

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/errors"
)

// hopHeaders are connection-specific and never relayed.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// DialerFactory returns a connector that reaches arbitrary targets through the proxy at proxyAddr.
type DialerFactory func(proxyAddr string) (proxy.ContextDialer, error)

// Engine is the gateway's proxy handler.
// NewEngine should be used to create instances of Engine.
type Engine struct {
	monitor       contracts.PeerHealthMonitor
	logger        hclog.Logger
	dialerFactory DialerFactory
	limiter       *rate.Limiter
	metrics       *Metrics
	timeout       time.Duration
	socksPort     int
	maxBody       int64
}

// NewEngine creates an Engine that selects peers from monitor.
func NewEngine(logger hclog.Logger, monitor contracts.PeerHealthMonitor, opt ...Option) (*Engine, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if monitor == nil || reflect.ValueOf(monitor).IsNil() {
		return nil, fmt.Errorf("health monitor cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}

	return &Engine{
		monitor:       monitor,
		logger:        logger.Named("forward"),
		dialerFactory: opts.DialerFactory,
		limiter:       limiter,
		metrics:       opts.Metrics,
		timeout:       opts.RequestTimeout,
		socksPort:     opts.SOCKSPort,
		maxBody:       opts.MaxResponseBytes,
	}, nil
}

// ServeHTTP implements http.Handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CONNECT is answered immediately and never consumes a rate limit token.
	if r.Method == http.MethodConnect {
		e.handleConnect(w, r)
		return
	}

	if e.limiter != nil && !e.limiter.Allow() {
		e.metrics.observeRequest(OutcomeRateLimited)
		writeError(e.logger, w, errors.ErrRateLimited)
		return
	}

	target, err := targetURL(r)
	if err != nil {
		e.metrics.observeRequest(OutcomeBadRequest)
		writeError(e.logger, w, err)
		return
	}

	peer, ok := Select(e.monitor.List())
	if !ok {
		e.metrics.observeRequest(OutcomeNoPeer)
		writeError(e.logger, w, errors.ErrNoPeerAvailable)
		return
	}

	res, body, elapsed, err := e.forward(r, peer.Address, target)
	ms := float64(elapsed) / float64(time.Millisecond)
	e.monitor.RecordOutcome(peer.PeerID, ms, err == nil)
	e.metrics.observeLatency(elapsed.Seconds())

	if err != nil {
		if stdErrors.Is(err, errors.ErrUpstreamTimeout) {
			e.metrics.observeRequest(OutcomeTimeout)
		} else {
			e.metrics.observeRequest(OutcomeFailure)
		}
		e.logger.Debug("Forward failed", "peer", peer.PeerID, "target", target, "elapsed_ms", ms, "error", err)
		writeError(e.logger, w, err)
		return
	}

	e.metrics.observeRequest(OutcomeSuccess)
	e.logger.Debug("Forwarded request", "peer", peer.PeerID, "target", target, "status", res.StatusCode, "elapsed_ms", ms)

	copyHeader(w.Header(), res.Header)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(body)
}

// handleConnect acknowledges a CONNECT request without selecting a peer or opening a tunnel.
func (e *Engine) handleConnect(w http.ResponseWriter, r *http.Request) {
	e.metrics.observeTunnel()
	e.logger.Debug("Acknowledged CONNECT", "host", r.Host)

	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
}

// forward sends r to target through the SOCKS5 endpoint of the peer at peerAddr and reads the whole response.
// The elapsed time covers dispatch until the body was fully read, or until the failure.
func (e *Engine) forward(r *http.Request, peerAddr string, target string) (*http.Response, []byte, time.Duration, error) {
	ctx, cancel := context.WithTimeout(r.Context(), e.timeout)
	defer cancel()

	proxyAddr := proxyAddress(peerAddr, e.socksPort)
	dialer, err := e.dialerFactory(proxyAddr)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: SOCKS5 connector for %s: %w", errors.ErrUpstreamFailure, proxyAddr, err)
	}

	transport := &http.Transport{
		DialContext:       dialer.DialContext,
		DisableKeepAlives: true,
		Proxy:             nil,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		// Redirects are relayed to the client, not followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %w", errors.ErrBadRequest, err)
	}
	out.ContentLength = r.ContentLength
	copyHeader(out.Header, r.Header)

	start := time.Now()
	res, err := client.Do(out)
	if err != nil {
		return nil, nil, time.Since(start), upstreamError(ctx, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, e.maxBody+1))
	elapsed := time.Since(start)
	if err != nil {
		return nil, nil, elapsed, upstreamError(ctx, err)
	}
	if int64(len(body)) > e.maxBody {
		return nil, nil, elapsed, fmt.Errorf(
			"%w: response from %s exceeds %d bytes",
			errors.ErrUpstreamFailure,
			target,
			e.maxBody,
		)
	}

	return res, body, elapsed, nil
}

// SOCKS5Dialer is the default DialerFactory, connecting through an unauthenticated SOCKS5 proxy.
func SOCKS5Dialer(proxyAddr string) (proxy.ContextDialer, error) {
	d, err := proxy.SOCKS5("tcp", proxyAddr, nil, &net.Dialer{})
	if err != nil {
		return nil, err
	}

	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", proxyAddr)
	}

	return cd, nil
}

// upstreamError classifies a failure talking to the target through a peer.
func upstreamError(ctx context.Context, err error) error {
	if stdErrors.Is(ctx.Err(), context.DeadlineExceeded) || stdErrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errors.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", errors.ErrUpstreamFailure, err)
}

// targetURL returns the absolute URL a proxied request is for.
// Proxy-form requests carry it in the request line; origin-form requests are resolved against Host.
func targetURL(r *http.Request) (string, error) {
	if r.URL.IsAbs() {
		return r.URL.String(), nil
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		return "", fmt.Errorf("%w: cannot determine target host", errors.ErrBadRequest)
	}

	return "http://" + host + r.URL.RequestURI(), nil
}

// proxyAddress returns host:port of a peer's SOCKS5 endpoint.
// Addresses that already carry a port are used as is.
func proxyAddress(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(port))
}

// copyHeader copies end-to-end headers from src to dst.
func copyHeader(dst http.Header, src http.Header) {
	hop := map[string]struct{}{}
	for _, h := range hopHeaders {
		hop[h] = struct{}{}
	}
	for _, v := range src.Values("Connection") {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				hop[http.CanonicalHeaderKey(f)] = struct{}{}
			}
		}
	}

	for k, vv := range src {
		if _, skip := hop[http.CanonicalHeaderKey(k)]; skip {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
