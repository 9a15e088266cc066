// Package cli handles cmd line input for DBG and eyeballing ranking changes
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ferrwyn/autocompleted/internal/utils"
	"github.com/ferrwyn/autocompleted/pkg/search"
)

// InputHandler processes prefixes from stdin and prints the ranked matches.
// Length bounds and the result limit mirror the daemon's query validation so
// what the REPL shows is what the HTTP surface would answer.
type InputHandler struct {
	searcher     search.ISearcher
	minQuery     int
	maxQuery     int
	limit        int
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(searcher search.ISearcher, minQuery, maxQuery, limit int) *InputHandler {
	return &InputHandler{
		searcher: searcher,
		minQuery: minQuery,
		maxQuery: maxQuery,
		limit:    limit,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates on :q, on EOF, or if reading stdin fails.
func (h *InputHandler) Start() error {
	log.Print("autocompleted REPL")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a tag prefix and press Enter to see the matches (:q to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":q" {
			return nil
		}
		h.handleInput(line)
	}
}

// handleInput resolves a single prefix. It validates the raw input the same
// way the daemon does, then asks the engine for matches. Results are
// formatted and printed to the log with via-alias annotations.
func (h *InputHandler) handleInput(raw string) {
	h.requestCount++

	if !utils.ValidQueryLength(raw, h.minQuery, h.maxQuery) {
		log.Errorf("Query length outside [%d, %d]: %s", h.minQuery, h.maxQuery, raw)
		return
	}
	prefix := utils.NormalizeQuery(raw)

	start := time.Now()
	log.Debug("Processing request for", "prefix", prefix)

	candidates, err := h.searcher.SearchN(context.Background(), prefix, h.limit)

	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)

	if err != nil {
		log.Errorf("Search failed for '%s': %v", prefix, err)
		return
	}
	if len(candidates) == 0 {
		log.Warnf("No tags found for prefix: '%s'", prefix)
		return
	}

	log.Printf("Found %d tags for prefix '%s' in %v:", len(candidates), prefix, elapsed)
	for i, c := range candidates {
		fmtCount := utils.FormatWithCommas(int(c.PostCount))
		clName := fmt.Sprintf("\033[38;5;75m%s\033[0m", c.Name)
		via := ""
		if c.Source == search.MatchAlias {
			via = fmt.Sprintf("  <- %s", c.Antecedent)
		}
		log.Printf("%2d. %-40s (posts: %10s)%s", i+1, clName, fmtCount, via)
	}
}
