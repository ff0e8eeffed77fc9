package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/adapters/file"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// StackOptions selects the backing services of a long-running server.
type StackOptions struct {
	// RedisAddr enables the redis snapshot store and distributed locker.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// DataDir enables the file snapshot store when redis is not used.
	DataDir string

	// MaskProps are regular expressions; matching prop keys are masked
	// before snapshots are stored.
	MaskProps []string

	// EncryptionKey enables AES-256 encryption of stored snapshots.
	EncryptionKey []byte

	Logger *slog.Logger
}

// Stack is the wiring shared by serve and mcp.
type Stack struct {
	Manager  *session.Manager
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	close    func() error
}

// Close releases the backing services.
func (s *Stack) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStack builds the session manager with its store, locker and metrics.
func NewStack(opts StackOptions) (*Stack, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	stack := &Stack{Metrics: metrics, Gatherer: reg}
	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(opts.LockTTL),
	}

	var store ports.SnapshotStore
	if opts.RedisAddr != "" {
		rs := redis.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		store = rs
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(rs.Client(), "arbor:")))
		stack.close = rs.Close
		logger.Info("using redis snapshot store", "addr", opts.RedisAddr, "db", opts.RedisDB)
	} else if opts.DataDir != "" {
		store = file.New(opts.DataDir)
		logger.Info("using file snapshot store", "dir", opts.DataDir)
	} else {
		store = memory.NewStore()
	}

	mws, err := storeMiddlewares(opts)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	managerOpts = append(managerOpts, session.WithStore(middleware.Chain(store, mws...)))

	factory := arbor.NewSessionFactory(
		arbor.WithLogger(logger),
		arbor.WithMetrics(metrics),
	)
	stack.Manager = session.NewManager(factory, managerOpts...)
	return stack, nil
}

func storeMiddlewares(opts StackOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.MaskProps) > 0 {
		mw, err := middleware.NewPIIMiddleware(opts.MaskProps)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if len(opts.EncryptionKey) > 0 {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: opts.EncryptionKey})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// ParseEncryptionKey decodes a hex encoded AES-256 key.
func ParseEncryptionKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// NewHTTPHandler exposes the stack over HTTP, including /metrics.
func NewHTTPHandler(stack *Stack, logger *slog.Logger) http.Handler {
	return httpAdapter.NewHandler(stack.Manager, NewRegistry(),
		httpAdapter.WithMetrics(stack.Gatherer),
		httpAdapter.WithLogger(logger),
	)
}

// ServeOptions configures Serve.
type ServeOptions struct {
	StackOptions
	Addr   string
	Quiet  bool
	Pretty bool
	Out    io.Writer
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	stack, err := NewStack(opts.StackOptions)
	if err != nil {
		return err
	}
	defer stack.Close()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: NewHTTPHandler(stack, logger),
	}

	if !opts.Quiet && opts.Out != nil {
		tui.PrintBanner(opts.Out, tui.Profile(opts.Pretty))
		printSystemMessage(opts.Out, "Listening on %s (arbor %s)", opts.Addr, arbor.Version)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		if !opts.Quiet && opts.Out != nil {
			printSystemMessage(opts.Out, "Server stopped gracefully")
		}
		return nil
	}
}

// MCPOptions configures RunMCP.
type MCPOptions struct {
	StackOptions
	Transport string
	Port      int
}

// RunMCP runs the MCP server on stdio or SSE.
func RunMCP(ctx context.Context, opts MCPOptions) error {
	stack, err := NewStack(opts.StackOptions)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := mcp.NewServer(stack.Manager, NewRegistry(), opts.Logger)
	switch opts.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		err := srv.ServeSSE(ctx, opts.Port)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
}
