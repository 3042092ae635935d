package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/vizlake/vizlake/pkg/cache"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decider"
	"github.com/vizlake/vizlake/pkg/executor"
	"github.com/vizlake/vizlake/pkg/logger"
	"github.com/vizlake/vizlake/pkg/server"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr        = "0.0.0.0:8000"
	defaultMetricsAddr       = "0.0.0.0:9090"
	defaultReadHeaderTimeout = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultLLMModel          = string(anthropic.ModelClaudeSonnet4_5_20250929)
	defaultLLMMaxTokens      = 4096
	defaultMaxFileBytes      = 100 << 20 // 100MB datasets
	defaultCacheTTL          = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "HTTP server listen address")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics (set to empty string to disable)")
	readHeaderTimeoutFlag := flag.Duration("read-header-timeout", defaultReadHeaderTimeout, "HTTP read header timeout")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", defaultShutdownTimeout, "Server shutdown timeout")

	llmModelFlag := flag.String("llm-model", defaultLLMModel, "Anthropic model for chart decisions (or set VIZLAKE_LLM_MODEL env var)")
	llmMaxTokensFlag := flag.Int64("llm-max-tokens", defaultLLMMaxTokens, "Max tokens per model response")
	allowedRootsFlag := flag.StringSlice("allowed-roots", nil, "Directories dataset paths must live under (or set VIZLAKE_ALLOWED_ROOTS env var, comma-separated; empty allows any path)")
	maxFileBytesFlag := flag.Int64("max-file-bytes", defaultMaxFileBytes, "Largest dataset file accepted, in bytes")
	cacheTTLFlag := flag.Duration("cache-ttl", defaultCacheTTL, "Render cache entry TTL (or set CACHE_TTL_SEC env var, in seconds; 0 disables the cache)")

	flag.Parse()

	// Override flags with environment variables if set
	if envModel := os.Getenv("VIZLAKE_LLM_MODEL"); envModel != "" {
		*llmModelFlag = envModel
	}
	if envRoots := os.Getenv("VIZLAKE_ALLOWED_ROOTS"); envRoots != "" {
		*allowedRootsFlag = strings.Split(envRoots, ",")
	}
	if envTTL := os.Getenv("CACHE_TTL_SEC"); envTTL != "" {
		secs, err := strconv.Atoi(envTTL)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL_SEC: %w", err)
		}
		*cacheTTLFlag = time.Duration(secs) * time.Second
	}

	log := logger.New(*verboseFlag)
	log.Info("starting vizlake", "version", version, "commit", commit, "date", date)

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("server: received signal", "signal", sig.String())
		cancel()
	}()

	var metricsServerErrCh = make(chan error, 1)
	if *metricsAddrFlag != "" {
		server.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				metricsServerErrCh <- err
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				metricsServerErrCh <- err
				return
			}
		}()
	}

	loader, err := dataset.NewDuckLoader(log)
	if err != nil {
		return fmt.Errorf("failed to create dataset loader: %w", err)
	}
	defer func() {
		if err := loader.Close(); err != nil {
			log.Error("failed to close dataset loader", "error", err)
		}
	}()

	paths := dataset.PathPolicy{
		AllowedRoots: *allowedRootsFlag,
		MaxBytes:     *maxFileBytesFlag,
	}

	exec, err := executor.New(executor.Config{
		Logger: log,
		Loader: loader,
		Paths:  paths,
	})
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	llm := decider.NewAnthropicLLMClient(anthropic.Model(*llmModelFlag), *llmMaxTokensFlag)
	dec, err := decider.New(decider.Config{
		Logger: log,
		LLM:    llm,
	})
	if err != nil {
		return fmt.Errorf("failed to create decider: %w", err)
	}

	var renderCache *cache.Store
	if *cacheTTLFlag > 0 {
		renderCache = cache.New(*cacheTTLFlag)
		defer renderCache.Stop()
	}

	listener, err := net.Listen("tcp", *listenAddrFlag)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener: %w", err)
	}
	defer listener.Close()

	srv, err := server.New(server.Config{
		Logger:            log,
		Decider:           dec,
		Executor:          exec,
		Loader:            loader,
		Paths:             paths,
		Cache:             renderCache,
		ReadHeaderTimeout: *readHeaderTimeoutFlag,
		ShutdownTimeout:   *shutdownTimeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx, listener)
	}()

	select {
	case <-ctx.Done():
		log.Info("server: shutting down", "reason", ctx.Err())
		return nil
	case err := <-serverErrCh:
		if err != nil {
			log.Error("server: server error causing shutdown", "error", err)
		}
		return err
	case err := <-metricsServerErrCh:
		log.Error("server: metrics server error causing shutdown", "error", err)
		return err
	}
}
