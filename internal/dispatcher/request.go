package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrQueueFull   = errors.New("request queue full")
	ErrStopped     = errors.New("dispatcher stopped")
)

// Executor accepts requests and returns immediately with a Future.
type Executor interface {
	Submit(ctx context.Context, req *Request) *Future
}

type Request struct {
	Route    CompiledRoute
	Query    url.Values
	Body     interface{}
	Reason   string
	Priority JobPriority
}

type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// RemoteError is a non-2xx reply from the platform.
type RemoteError struct {
	Route      string
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d (code %d): %s", e.Route, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %d", e.Route, e.StatusCode)
}

func (e *RemoteError) IsNotFound() bool  { return e.StatusCode == 404 }
func (e *RemoteError) IsForbidden() bool { return e.StatusCode == 403 }

// Future is the deferred result of a submitted request. It resolves once.
type Future struct {
	done chan struct{}
	once sync.Once
	resp *Response
	err  error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// CompletedFuture is already resolved with resp and err.
func CompletedFuture(resp *Response, err error) *Future {
	f := NewFuture()
	f.Resolve(resp, err)
	return f
}

// Resolve reports whether this call set the result.
func (f *Future) Resolve(resp *Response, err error) bool {
	set := false
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		close(f.done)
		set = true
	})
	return set
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is in or ctx ends. Cancelling ctx does not
// cancel the request itself.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
