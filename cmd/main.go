package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/fluffyriot/screengrabx/internal/api/handlers"
	"github.com/fluffyriot/screengrabx/internal/cache"
	"github.com/fluffyriot/screengrabx/internal/cli"
	"github.com/fluffyriot/screengrabx/internal/config"
	"github.com/fluffyriot/screengrabx/internal/coordinator"
	"github.com/fluffyriot/screengrabx/internal/fetcher"
	"github.com/fluffyriot/screengrabx/internal/middleware"
	"github.com/fluffyriot/screengrabx/internal/renderer"
	"github.com/fluffyriot/screengrabx/internal/stats"
	"github.com/fluffyriot/screengrabx/internal/worker"
)

func main() {
	invalidateFlag := flag.String("invalidate", "", "drop a cached post (account/status_id) and exit")
	sweepFlag := flag.Bool("sweep", false, "run one cache sweep and exit")
	exportFlag := flag.String("export", "", "write the cache index as CSV to the given path and exit")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// A dead database is not fatal: the service keeps working with an
	// in-memory cache index, only persistence across restarts is lost.
	var (
		store  cache.Store
		dbConn *sql.DB
	)
	dbConn, err = config.LoadDatabase(cfg.Database)
	if err != nil {
		logger.Warn("Cache index database unavailable, starting in memory-only mode", zap.Error(err))
		store = cache.NewMemStore(256, cfg.Cache.StaleCeiling)
		dbConn = nil
	} else {
		store, err = cache.NewDBStore(dbConn, cfg.Cache.Dir, cfg.Cache.MaxBytes, cfg.Cache.StaleCeiling, logger)
		if err != nil {
			logger.Fatal("Failed to initialize cache store", zap.Error(err))
		}
	}

	if *invalidateFlag != "" || *sweepFlag || *exportFlag != "" {
		runMaintenance(store, dbConn, *invalidateFlag, *sweepFlag, *exportFlag)
		return
	}

	client := fetcher.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, cfg.Upstream.RequestsPerSec)

	engine := renderer.NewChromeEngine(cfg.Render.ChromePath)
	defer engine.Close()
	rend := renderer.New(engine, logger, cfg.Render.Workers, cfg.Render.Timeout, cfg.Render.Width)

	collector := stats.NewCollector()

	coord := coordinator.New(store, client, rend, collector, logger, coordinator.Config{
		TTL:          cfg.Cache.TTL,
		StaleCeiling: cfg.Cache.StaleCeiling,
		PublicHost:   cfg.Server.PublicHost,
		InternalBase: internalBase(cfg.Server.ListenAddr),
		MosaicWidth:  cfg.Render.Width * 2,
	})

	var janitor *worker.Janitor
	if dbStore, ok := store.(*cache.DBStore); ok && cfg.Cache.SweepInterval > 0 {
		janitor = worker.NewJanitor(dbStore, logger)
		janitor.Start(cfg.Cache.SweepInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.LoadHTMLGlob("templates/*")

	h := handlers.NewHandler(coord, collector, cfg, dbConn, logger)
	h.RegisterRoutes(r)

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", cfg.Server.ListenAddr), zap.Error(err))
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{Handler: r}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	// In-flight fills keep their detached contexts, give responses a
	// window to drain before closing the store under them.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Shutdown did not drain cleanly", zap.Error(err))
	}

	if janitor != nil {
		janitor.Stop()
	}
	if err := store.Close(); err != nil {
		logger.Warn("Failed to close cache store", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// runMaintenance dispatches the one-shot operator commands. All of
// them act on the shared cache index, a memory-only process has
// nothing for them to touch.
func runMaintenance(store cache.Store, dbConn *sql.DB, invalidate string, sweep bool, export string) {
	defer store.Close()

	dbStore, ok := store.(*cache.DBStore)
	if !ok || dbConn == nil {
		fmt.Fprintln(os.Stderr, "maintenance commands require the cache index database")
		os.Exit(1)
	}

	if invalidate != "" {
		cli.HandleInvalidate(dbStore, invalidate)
	}
	if sweep {
		cli.HandleSweep(dbStore)
	}
	if export != "" {
		cli.HandleExport(dbConn, export)
	}
}

// internalBase is where the screenshot engine reaches our own render
// pages, always over loopback.
func internalBase(listenAddr string) string {
	if strings.HasPrefix(listenAddr, ":") {
		return "http://127.0.0.1" + listenAddr
	}
	if _, port, err := net.SplitHostPort(listenAddr); err == nil {
		return "http://127.0.0.1:" + port
	}
	return "http://" + listenAddr
}
