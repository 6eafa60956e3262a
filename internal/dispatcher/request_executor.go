package dispatcher

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"go-guildevents/internal/logging"
	"go-guildevents/internal/metrics"
)

const userAgent = "DiscordBot (https://github.com/go-guildevents, 1.0)"

// RequestExecutor performs one HTTP round trip per Request. It does not
// retry.
type RequestExecutor struct {
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	metrics     *metrics.Registry
	baseURL     string
	token       string
	timeout     time.Duration
}

func NewRequestExecutor(httpPool *HTTPPool, rateLimiter *RateLimitMonitor, m *metrics.Registry, baseURL, token string, timeout time.Duration) *RequestExecutor {
	return &RequestExecutor{
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		metrics:     m,
		baseURL:     baseURL,
		token:       token,
		timeout:     timeout,
	}
}

func (re *RequestExecutor) Execute(r *Request) (*Response, error) {
	route := r.Route.Route.String()
	key := r.Route.BucketKey()

	if !re.rateLimiter.CanExecute(key) {
		re.metrics.RateLimited(route)
		return nil, fmt.Errorf("%s: %w", route, ErrRateLimited)
	}

	startTime := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := re.baseURL + r.Route.Path
	if len(r.Query) > 0 {
		uri += "?" + r.Query.Encode()
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(r.Route.Route.Method)
	req.Header.Set("Authorization", "Bot "+re.token)
	req.Header.Set("User-Agent", userAgent)
	if r.Reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(r.Reason))
	}
	if r.Body != nil {
		body, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", route, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	client := re.httpPool.GetClient()
	if err := client.DoTimeout(req, resp, re.timeout); err != nil {
		logging.Warn("[REST] %s %s failed: %v", r.Route.Route.Method, r.Route.Path, err)
		return nil, fmt.Errorf("%s: %w", route, err)
	}

	re.rateLimiter.UpdateFromFastHTTPResponse(resp, key)

	elapsed := time.Since(startTime)
	statusCode := resp.StatusCode()
	re.metrics.ObserveREST(route, statusCode, elapsed)

	body := append([]byte(nil), resp.Body()...)

	if statusCode >= 200 && statusCode < 300 {
		logging.Debug("[REST] %s %s -> %d in %d µs", r.Route.Route.Method, r.Route.Path, statusCode, elapsed.Microseconds())
		return &Response{StatusCode: statusCode, Body: body}, nil
	}

	remoteErr := &RemoteError{Route: route, StatusCode: statusCode}
	if len(body) > 0 {
		_ = json.Unmarshal(body, remoteErr)
	}
	logging.Warn("[REST] %s %s -> %d: %s", r.Route.Route.Method, r.Route.Path, statusCode, remoteErr.Message)
	return nil, remoteErr
}
