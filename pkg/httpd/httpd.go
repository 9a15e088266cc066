/*
Package httpd is the public HTTP face of the autocomplete engine.

It serves GET / with a search[name_matches] query parameter and answers
with a JSON array of ranked tags. Every response carries permissive CORS
headers; successful lookups are marked cacheable for seven days so upstream
proxies absorb repeat traffic. /healthz answers liveness probes and
/metrics exposes Prometheus counters.
*/
package httpd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferrwyn/autocompleted/pkg/cache"
	"github.com/ferrwyn/autocompleted/pkg/config"
	"github.com/ferrwyn/autocompleted/pkg/search"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	shutdownTimeout = 10 * time.Second
)

// Daemon owns the router and the listener.
type Daemon struct {
	srv *http.Server
}

// New assembles the daemon. responses may be nil to disable caching. Call
// gin.SetMode before New to pick the gin mode.
func New(engine *search.Engine, cfg *config.Config, responses *cache.ResponseCache) *Daemon {
	return &Daemon{srv: &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(engine, cfg, responses),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func newRouter(engine *search.Engine, cfg *config.Config, responses *cache.ResponseCache) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), corsHeaders(), requestTracking())

	h := &handler{engine: engine, cfg: cfg, responses: responses}
	router.GET("/", h.search)
	router.GET("/healthz", healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// Run serves until the listener fails or Shutdown is called. A shut-down
// server returns nil.
func (d *Daemon) Run() error {
	log.Infof("HTTP daemon listening on %s", d.srv.Addr)
	if err := d.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests for up
// to shutdownTimeout.
func (d *Daemon) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return d.srv.Shutdown(ctx)
}

// corsHeaders marks every response as callable from any origin.
func corsHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization")
		c.Next()
	}
}

// requestTracking tags each request with the client-sent X-Request-ID or a
// fresh UUID, echoed in the response for log correlation.
func requestTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
