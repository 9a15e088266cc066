// Copyright 2025 The Autocompleted Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the tag autocomplete daemon and its side modes.

Autocompleted resolves tag name prefixes against a taxonomy with alias
redirection: direct name matches and alias-resolved matches are merged,
deduplicated and ranked by post count into one top-K answer. It runs as an
HTTP daemon by default, as a MessagePack IPC server for editor integration,
or as an interactive REPL for eyeballing ranking changes.

# Usage

Start the HTTP daemon with default settings:

	autocompleted

Point it at a specific database and address:

	autocompleted -db /var/lib/autocompleted/tags.db -addr 0.0.0.0:8420

Run in REPL mode against a local store:

	autocompleted -c -limit 10

Serve editors over stdio:

	autocompleted -s

Load a taxonomy dump into the sqlite store:

	autocompleted -import-tags tags.csv -import-aliases tag_aliases.csv

# HTTP API

The daemon answers GET / with a search[name_matches] query parameter:

	GET /?search[name_matches]=kit

	[{"id":1,"name":"cats","post_count":500,"category":0,
	  "matched_via":"alias","antecedent_name":"kittens"}]

Successful responses are publicly cacheable for seven days; invalid queries
get 400 {"error":"bad request"} and store failures 500 {"error":"internal
error"}. /healthz answers liveness probes and /metrics serves Prometheus
counters.

# Configuration

Runtime configuration is managed through a TOML file holding the serving
surface, query limits, store backend, response cache and logging options:

	[server]
	addr = "0.0.0.0:8420"
	min_query = 3
	max_query = 100

	[limits]
	direct = 10
	alias = 20
	final = 10

	[store]
	backend = "sqlite"
	path = "data/tags.db"

The file is searched at the -config path, then ./autocompleted.toml, then
the user config directory. Environment variables in the form
AUTOCOMPLETED__SERVER__ADDR override file values; flags override both.
Use -init-config to write a commented default file.

# IPC Protocol

Stdio mode speaks MessagePack over stdin/stdout. Search requests are
processed synchronously with timing information included in responses:

	{"id": "req1", "q": "kit", "l": 10}

	{"id": "req1", "tags": [{"n": "cats", "c": 500, "t": 0,
	 "v": "alias", "a": "kittens"}], "count": 1, "took": 2}

Config requests (get_config / update_config) adjust the query knobs at
runtime without a restart.

# Command Line Flags

The following flags control application behavior:

	-config string
	    Path to a TOML config file
	-db string
	    Path to the sqlite database file (overrides config)
	-addr string
	    HTTP listen address (overrides config)
	-s  Serve MessagePack IPC on stdin/stdout instead of HTTP
	-c  Run the interactive REPL
	-d  Enable debug mode with detailed logging
	-limit int
	    Final result limit override
	-import-tags string
	    Import a tags CSV dump into the sqlite store and exit
	-import-aliases string
	    Import an aliases CSV dump into the sqlite store and exit
	-init-config
	    Write a commented default config file and exit
	-v  Show current version

The application resolves relative data paths against the working directory
and the executable location, supporting both development and production
deployments.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ferrwyn/autocompleted/internal/cli"
	"github.com/ferrwyn/autocompleted/internal/logger"
	"github.com/ferrwyn/autocompleted/internal/utils"
	"github.com/ferrwyn/autocompleted/pkg/cache"
	"github.com/ferrwyn/autocompleted/pkg/config"
	"github.com/ferrwyn/autocompleted/pkg/httpd"
	"github.com/ferrwyn/autocompleted/pkg/search"
	"github.com/ferrwyn/autocompleted/pkg/server"
	"github.com/ferrwyn/autocompleted/pkg/store"
)

const (
	Version = "0.3.0"
	AppName = "autocompleted"
	gh      = "https://github.com/ferrwyn/autocompleted"
)

// sigHandler is a simple handler for OS signals to exit normally. The HTTP
// daemon installs its own draining handler instead.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the stores, engine and serving
// surfaces. main() does not implement logic for them and only manages the flow.
func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	dbPath := flag.String("db", "", "Path to the sqlite database file (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	stdioMode := flag.Bool("s", false, "Serve MessagePack IPC on stdin/stdout instead of HTTP")
	replMode := flag.Bool("c", false, "Run the interactive REPL -- useful for testing and debugging")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	limit := flag.Int("limit", 0, "Final result limit override")
	importTags := flag.String("import-tags", "", "Import a tags CSV dump into the sqlite store and exit")
	importAliases := flag.String("import-aliases", "", "Import an aliases CSV dump into the sqlite store and exit")
	initConfig := flag.Bool("init-config", false, "Write a commented default config file and exit")
	showVersion := flag.Bool("v", false, "Show current version")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *initConfig {
		path, err := config.InitConfigFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Infof("Wrote default config to %s", path)
		os.Exit(0)
	}

	cfg, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// flags beat env beat file
	if *dbPath != "" {
		cfg.Store.Backend = "sqlite"
		cfg.Store.Path = *dbPath
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *limit > 0 {
		cfg.Limits.Final = *limit
	}
	cfg.Validate()

	logger.Setup(cfg.Log.Level, cfg.Log.Format, *debugMode)

	ctx := context.Background()
	st, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer closeStore()

	if *importTags != "" || *importAliases != "" {
		runImports(ctx, st, *importTags, *importAliases)
		return
	}

	engine := search.NewEngine(st, search.Limits{
		Direct: cfg.Limits.Direct,
		Alias:  cfg.Limits.Alias,
		Final:  cfg.Limits.Final,
	})

	switch {
	case *replMode:
		sigHandler()
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"minQuery", cfg.Server.MinQuery,
			"maxQuery", cfg.Server.MaxQuery,
			"limit", cfg.Limits.Final)

		handler := cli.NewInputHandler(engine, cfg.Server.MinQuery, cfg.Server.MaxQuery, cfg.Limits.Final)
		if err := handler.Start(); err != nil {
			log.Fatalf("REPL error: %v", err)
		}
	case *stdioMode:
		sigHandler()
		log.Debug("spawning IPC")
		log.Debugf("Config updates persist to: (%s)", activeConfigPath)

		srv := server.NewServer(engine, cfg, activeConfigPath)
		if err := srv.Start(); err != nil {
			log.Fatalf("IPC server failed: %v", err)
		}
	default:
		runHTTP(engine, cfg, *debugMode)
	}
}

// buildStore opens the configured backend. The returned func releases it;
// for the memory store that is a no-op.
func buildStore(ctx context.Context, cfg *config.Config) (search.TagStore, func(), error) {
	if cfg.Store.Backend == "memory" {
		ms := store.NewMemoryStore()
		if err := loadMemoryDumps(ms, cfg); err != nil {
			return nil, nil, err
		}
		tags, aliases := ms.Counts()
		log.Debugf("Memory store holds %d tags, %d aliases", tags, aliases)
		return ms, func() {}, nil
	}

	sq, err := store.OpenSQLite(ctx, store.SQLiteOptions{
		Path:         utils.ResolveDataPath(cfg.Store.Path),
		QueryTimeout: cfg.Store.QueryTimeout(),
	})
	if err != nil {
		return nil, nil, err
	}
	return sq, func() {
		if err := sq.Close(); err != nil {
			log.Errorf("Closing store: %v", err)
		}
	}, nil
}

// loadMemoryDumps seeds the memory store from the configured CSV files.
func loadMemoryDumps(ms *store.MemoryStore, cfg *config.Config) error {
	if cfg.Store.TagsCSV != "" {
		n, err := loadDump(cfg.Store.TagsCSV, ms.LoadTags)
		if err != nil {
			return err
		}
		log.Debugf("Loaded %d tags from %s", n, cfg.Store.TagsCSV)
	}
	if cfg.Store.AliasesCSV != "" {
		n, err := loadDump(cfg.Store.AliasesCSV, ms.LoadAliases)
		if err != nil {
			return err
		}
		log.Debugf("Loaded %d aliases from %s", n, cfg.Store.AliasesCSV)
	}
	return nil
}

func loadDump(path string, loadFn func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(utils.ResolveDataPath(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return loadFn(f)
}

// runImports loads CSV dumps into the sqlite store and exits.
func runImports(ctx context.Context, st search.TagStore, tagsPath, aliasesPath string) {
	sq, ok := st.(*store.SQLiteStore)
	if !ok {
		log.Fatal("CSV import requires the sqlite backend")
	}

	if tagsPath != "" {
		n := importDump(ctx, sq.ImportTags, tagsPath)
		log.Infof("Imported %d tags from %s", n, tagsPath)
	}
	if aliasesPath != "" {
		n := importDump(ctx, sq.ImportAliases, aliasesPath)
		log.Infof("Imported %d aliases from %s", n, aliasesPath)
	}

	tags, aliases, err := sq.Counts(ctx)
	if err == nil {
		log.Infof("Store now holds %d tags, %d aliases", tags, aliases)
	}
}

func importDump(ctx context.Context, importFn func(context.Context, io.Reader) (int, error), path string) int {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Cannot open %s: %v", path, err)
	}
	defer f.Close()

	n, err := importFn(ctx, f)
	if err != nil {
		log.Fatalf("Import from %s failed: %v", path, err)
	}
	return n
}

// runHTTP serves the daemon until a signal drains it.
func runHTTP(engine *search.Engine, cfg *config.Config, debug bool) {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var responses *cache.ResponseCache
	if cfg.Cache.Enabled {
		responses = cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL())
	} else {
		log.Debug("Response cache disabled")
	}

	daemon := httpd.New(engine, cfg, responses)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Draining in-flight requests...")
		if err := daemon.Shutdown(); err != nil {
			log.Errorf("Shutdown: %v", err)
		}
	}()

	showStartupInfo(cfg)

	if err := daemon.Run(); err != nil {
		log.Fatalf("HTTP daemon failed: %v", err)
	}
}

func printVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()

	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ autocompleted ] Tag autocomplete, ranked and alias-aware.")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===============")
	println(" autocompleted ")
	println("===============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	if cfg.Store.Backend == "memory" {
		log.Info("store: memory")
	} else {
		log.Infof("store: sqlite ( %s )", cfg.Store.Path)
	}
	log.Infof("listening on: %s", cfg.Server.Addr)
	log.Info("status: ready")
	println("===============")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
