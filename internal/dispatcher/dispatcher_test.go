package dispatcher

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"go-guildevents/internal/metrics"
)

const testBaseURL = "http://discord.test/api/v10"

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Reason string
	Body   string
}

// startServer serves handler on an in-memory listener and returns a
// dispatcher wired to it.
func startServer(t *testing.T, handler fasthttp.RequestHandler) *Dispatcher {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()

	d := NewDispatcher(Options{
		BaseURL:   testBaseURL,
		Token:     "secret",
		PoolSize:  1,
		Workers:   2,
		QueueSize: 16,
		Timeout:   time.Second,
		Metrics:   metrics.NewRegistry(),
		Dial:      func(string) (net.Conn, error) { return ln.Dial() },
	})
	d.Start()

	t.Cleanup(func() {
		d.Stop()
		_ = ln.Close()
	})
	return d
}

func await(t *testing.T, f *Future) (*Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func TestDispatcher_Submit(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)
	d := startServer(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		seen = append(seen, capturedRequest{
			Method: string(ctx.Method()),
			Path:   string(ctx.Path()),
			Query:  string(ctx.QueryArgs().QueryString()),
			Auth:   string(ctx.Request.Header.Peek("Authorization")),
			Reason: string(ctx.Request.Header.Peek("X-Audit-Log-Reason")),
			Body:   string(ctx.PostBody()),
		})
		mu.Unlock()

		switch string(ctx.Method()) {
		case fasthttp.MethodDelete:
			ctx.SetStatusCode(fasthttp.StatusNoContent)
		default:
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"ok":true}`)
		}
	})

	t.Run("delete_with_reason", func(t *testing.T) {
		f := d.Submit(context.Background(), &Request{
			Route:  RouteDeleteScheduledEvent.MustCompile("1", "2"),
			Reason: "cleanup old events",
		})
		resp, err := await(t, f)
		require.NoError(t, err)
		assert.Equal(t, fasthttp.StatusNoContent, resp.StatusCode)

		mu.Lock()
		last := seen[len(seen)-1]
		mu.Unlock()
		assert.Equal(t, fasthttp.MethodDelete, last.Method)
		assert.Equal(t, "/api/v10/guilds/1/scheduled-events/2", last.Path)
		assert.Equal(t, "Bot secret", last.Auth)
		assert.Equal(t, "cleanup%20old%20events", last.Reason)
	})

	t.Run("patch_with_body", func(t *testing.T) {
		f := d.Submit(context.Background(), &Request{
			Route: RouteModifyScheduledEvent.MustCompile("1", "2"),
			Body:  map[string]string{"name": "Launch"},
		})
		resp, err := await(t, f)
		require.NoError(t, err)

		var decoded map[string]bool
		require.NoError(t, resp.Decode(&decoded))
		assert.True(t, decoded["ok"])

		mu.Lock()
		last := seen[len(seen)-1]
		mu.Unlock()
		assert.Equal(t, fasthttp.MethodPatch, last.Method)
		assert.JSONEq(t, `{"name":"Launch"}`, last.Body)
	})
}

func TestDispatcher_RemoteError(t *testing.T) {
	d := startServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"code":10070,"message":"Unknown Guild Scheduled Event"}`)
	})

	_, err := await(t, d.Submit(context.Background(), &Request{
		Route: RouteGetScheduledEvent.MustCompile("1", "2"),
	}))
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.True(t, remote.IsNotFound())
	assert.False(t, remote.IsForbidden())
	assert.Equal(t, 10070, remote.Code)
	assert.Equal(t, "Unknown Guild Scheduled Event", remote.Message)
}

func TestDispatcher_RateLimitedLocally(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	d := startServer(t, func(ctx *fasthttp.RequestCtx) {
		mu.Lock()
		calls++
		mu.Unlock()
		ctx.Response.Header.Set("X-RateLimit-Remaining", "0")
		ctx.Response.Header.Set("X-RateLimit-Reset-After", "60")
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})

	route := RouteDeleteScheduledEvent.MustCompile("1", "2")
	_, err := await(t, d.Submit(context.Background(), &Request{Route: route}))
	require.NoError(t, err)

	_, err = await(t, d.Submit(context.Background(), &Request{Route: route}))
	assert.ErrorIs(t, err, ErrRateLimited)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestDispatcher_Lifecycle(t *testing.T) {
	t.Run("submit_before_start", func(t *testing.T) {
		d := NewDispatcher(Options{BaseURL: testBaseURL})
		_, err := await(t, d.Submit(context.Background(), &Request{
			Route: RouteDeleteScheduledEvent.MustCompile("1", "2"),
		}))
		assert.ErrorIs(t, err, ErrStopped)
	})

	t.Run("cancelled_context", func(t *testing.T) {
		d := NewDispatcher(Options{BaseURL: testBaseURL})
		d.Start()
		defer d.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := await(t, d.Submit(ctx, &Request{
			Route: RouteDeleteScheduledEvent.MustCompile("1", "2"),
		}))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("stop_is_idempotent", func(t *testing.T) {
		d := NewDispatcher(Options{BaseURL: testBaseURL})
		d.Start()
		assert.NotPanics(t, func() {
			d.Stop()
			d.Stop()
		})
	})
}
