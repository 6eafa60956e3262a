package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type HTTPPool struct {
	clients []*fasthttp.Client
	size    int
	index   uint32
}

// NewHTTPPool builds size clients. dial overrides the network dialer and
// is nil outside tests.
func NewHTTPPool(size int, timeout time.Duration, dial fasthttp.DialFunc) *HTTPPool {
	if size <= 0 {
		size = 1
	}
	clients := make([]*fasthttp.Client, size)

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	for i := 0; i < size; i++ {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:     256,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnWaitTimeout:  timeout / 4,

			ReadBufferSize:      16384,
			WriteBufferSize:     16384,
			MaxResponseBodySize: 4 * 1024 * 1024,

			// The retry policy belongs to callers.
			MaxIdemponentCallAttempts: 1,

			TLSConfig:                tlsConfig,
			NoDefaultUserAgentHeader: true,
			Dial:                     dial,
		}
	}

	return &HTTPPool{
		clients: clients,
		size:    size,
	}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := atomic.AddUint32(&hp.index, 1)
	return hp.clients[int(i-1)%hp.size]
}

// Warmup opens a connection ahead of the first real request.
func (hp *HTTPPool) Warmup(baseURL string) bool {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + "/gateway")
	req.Header.SetMethod(fasthttp.MethodGet)

	for i := 0; i < 3; i++ {
		err := hp.clients[0].DoTimeout(req, resp, 2*time.Second)
		if err == nil && resp.StatusCode() == fasthttp.StatusOK {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}
