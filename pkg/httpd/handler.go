package httpd

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ferrwyn/autocompleted/internal/utils"
	"github.com/ferrwyn/autocompleted/pkg/cache"
	"github.com/ferrwyn/autocompleted/pkg/config"
	"github.com/ferrwyn/autocompleted/pkg/search"
)

// searchParam is the query parameter carrying the raw prefix. Bracket style
// kept for drop-in compatibility with existing booru clients.
const searchParam = "search[name_matches]"

const (
	contentTypeJSON = "application/json; charset=utf-8"
	cachePublic     = "public, max-age=604800"
	cachePrivate    = "private; max-age=0"
)

// handler answers search requests, with an optional response cache in front
// of the engine. A nil cache sends every request to the engine.
type handler struct {
	engine    *search.Engine
	cfg       *config.Config
	responses *cache.ResponseCache
}

func (h *handler) search(c *gin.Context) {
	start := time.Now()

	raw := c.Query(searchParam)
	if !utils.ValidQueryLength(raw, h.cfg.Server.MinQuery, h.cfg.Server.MaxQuery) {
		h.fail(c, http.StatusBadRequest, "bad request")
		return
	}
	prefix := utils.NormalizeQuery(raw)

	if body, ok := h.responses.Get(prefix); ok {
		recordCacheEvent("hit")
		h.succeed(c, body, start)
		return
	}
	recordCacheEvent("miss")

	candidates, err := h.engine.Search(c.Request.Context(), prefix)
	if err != nil {
		log.Errorf("search %q failed (request %s): %v", prefix, c.GetString(requestIDKey), err)
		recordStoreError()
		h.fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	if candidates == nil {
		candidates = []search.Candidate{}
	}
	body, err := json.Marshal(candidates)
	if err != nil {
		log.Errorf("encoding response for %q: %v", prefix, err)
		h.fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if h.responses.Set(prefix, body) {
		recordCacheEvent("evict")
	}
	h.succeed(c, body, start)
}

func (h *handler) succeed(c *gin.Context, body []byte, start time.Time) {
	c.Header("Cache-Control", cachePublic)
	c.Data(http.StatusOK, contentTypeJSON, body)
	observeSearch(time.Since(start).Seconds())
	recordRequest(http.StatusOK)
}

// fail writes the error envelope. Bodies are fixed strings: whatever went
// wrong internally is logged, never echoed to the client.
func (h *handler) fail(c *gin.Context, status int, msg string) {
	c.Header("Cache-Control", cachePrivate)
	c.JSON(status, gin.H{"error": msg})
	recordRequest(status)
}

func healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
