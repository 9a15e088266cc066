// Package server: stdio msgpack loop wiring requests to the search engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ferrwyn/autocompleted/internal/utils"
	"github.com/ferrwyn/autocompleted/pkg/config"
	"github.com/ferrwyn/autocompleted/pkg/search"
)

// incomingFrame is the superset of every request shape. One decode, then
// dispatch on which fields arrived: Action set means config, Query set means
// search. Query is a pointer so an explicit empty string stays
// distinguishable from an absent field.
type incomingFrame struct {
	ID       string          `msgpack:"id"`
	Query    *string         `msgpack:"q"`
	Limit    int             `msgpack:"l"`
	Action   string          `msgpack:"action"`
	Settings *ConfigSettings `msgpack:"settings"`
}

// Server reads request frames from one stream and writes response frames to
// another. Stdout is reserved for frames; all logging goes to stderr.
type Server struct {
	engine     *search.Engine
	config     *config.Config
	configPath string
	decoder    *msgpack.Decoder
	encoder    *msgpack.Encoder
}

// NewServer creates a stdio server over the given engine. configPath is
// where update_config persists; empty means in-memory only.
func NewServer(engine *search.Engine, cfg *config.Config, configPath string) *Server {
	return newServerWithIO(engine, cfg, configPath, os.Stdin, os.Stdout)
}

func newServerWithIO(engine *search.Engine, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	return &Server{
		engine:     engine,
		config:     cfg,
		configPath: configPath,
		decoder:    msgpack.NewDecoder(r),
		encoder:    msgpack.NewEncoder(w),
	}
}

// Start announces readiness and serves frames until the input stream closes.
// A decode failure aborts the loop: after a malformed frame the stream
// offset is unknown and every later frame would misparse.
func (s *Server) Start() error {
	if err := s.encoder.Encode(map[string]string{"status": "ready"}); err != nil {
		return fmt.Errorf("failed to send ready signal: %w", err)
	}
	log.Debug("IPC server ready")

	for {
		var frame incomingFrame
		if err := s.decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("IPC input closed, shutting down")
				return nil
			}
			return fmt.Errorf("failed to decode request: %w", err)
		}
		s.handleFrame(&frame)
	}
}

func (s *Server) handleFrame(frame *incomingFrame) {
	switch {
	case frame.Action != "":
		s.handleConfig(frame)
	case frame.Query != nil:
		s.handleSearch(frame.ID, *frame.Query, frame.Limit)
	default:
		s.sendError(frame.ID, CodeBadRequest, "frame carries neither a query nor an action")
	}
}

func (s *Server) handleSearch(id, raw string, limit int) {
	start := time.Now()

	if !utils.ValidQueryLength(raw, s.config.Server.MinQuery, s.config.Server.MaxQuery) {
		s.sendError(id, CodeInvalidQuery,
			fmt.Sprintf("query length must be between %d and %d bytes",
				s.config.Server.MinQuery, s.config.Server.MaxQuery))
		return
	}
	prefix := utils.NormalizeQuery(raw)

	if limit < 0 {
		limit = 0
	}
	if max := s.config.Server.MaxLimit; limit > max {
		log.Debugf("limit %d clamped to %d", limit, max)
		limit = max
	}

	candidates, err := s.engine.SearchN(context.Background(), prefix, limit)
	if err != nil {
		log.Errorf("search failed for %q: %v", prefix, err)
		if errors.Is(err, search.ErrStoreUnavailable) {
			s.sendError(id, CodeStoreUnavailable, "tag store unavailable")
		} else {
			s.sendError(id, CodeInternal, "internal error")
		}
		return
	}

	tags := make([]SearchTag, 0, len(candidates))
	for _, c := range candidates {
		tags = append(tags, SearchTag{
			Name:       c.Name,
			PostCount:  c.PostCount,
			Category:   c.Category,
			Via:        string(c.Source),
			Antecedent: c.Antecedent,
		})
	}

	s.send(&SearchResponse{
		ID:        id,
		Tags:      tags,
		Count:     len(tags),
		TimeTaken: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleConfig(frame *incomingFrame) {
	switch frame.Action {
	case "get_config":
		s.sendConfig(frame.ID)
	case "update_config":
		if frame.Settings == nil {
			s.sendError(frame.ID, CodeBadRequest, "update_config requires settings")
			return
		}
		st := frame.Settings
		if err := s.config.Update(s.configPath, st.Direct, st.Alias, st.Final, st.MinQuery, st.MaxQuery); err != nil {
			log.Errorf("config update failed: %v", err)
			s.sendError(frame.ID, CodeInternal, "could not persist config")
			return
		}
		s.engine.SetLimits(search.Limits{
			Direct: s.config.Limits.Direct,
			Alias:  s.config.Limits.Alias,
			Final:  s.config.Limits.Final,
		})
		s.sendConfig(frame.ID)
	default:
		s.sendError(frame.ID, CodeBadRequest, fmt.Sprintf("unknown action %q", frame.Action))
	}
}

func (s *Server) sendConfig(id string) {
	s.send(&ConfigResponse{
		ID:       id,
		Status:   "ok",
		Direct:   s.config.Limits.Direct,
		Alias:    s.config.Limits.Alias,
		Final:    s.config.Limits.Final,
		MinQuery: s.config.Server.MinQuery,
		MaxQuery: s.config.Server.MaxQuery,
	})
}

func (s *Server) send(v any) {
	if err := s.encoder.Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) sendError(id, code, msg string) {
	log.Warnf("request %s rejected: %s", id, msg)
	s.send(&ErrorResponse{ID: id, Error: msg, Code: code})
}
