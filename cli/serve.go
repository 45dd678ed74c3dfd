package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/autogql/autogql/batch"
	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/pubsub"
	"github.com/autogql/autogql/schema"
	"github.com/autogql/autogql/store"
	"github.com/autogql/autogql/store/memory"
	"github.com/autogql/autogql/store/pg"
)

func newServeCmd(app App) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the derived GraphQL API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return wrapError(fmt.Sprintf("serve: load config %s", configPath), err,
					"Check the config file syntax.", 2)
			}
			return runServe(cmd.Context(), app, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "autogql.yaml", "Path to the server configuration file")
	return cmd
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServe(ctx context.Context, app App, cfg serverConfig) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var tracer tracing.Tracer
	if cfg.Tracing.Enabled {
		tracer = tracing.NewOTelTracer(otel.GetTracerProvider(), "")
	}

	var st store.Store
	if cfg.Database.URL != "" {
		poolOpts := cfg.Database.Pool.options()
		if tracer != nil {
			poolOpts = append(poolOpts, pg.WithQueryTracing(tracer))
		}
		pool, err := pg.Connect(ctx, cfg.Database.URL, poolOpts...)
		if err != nil {
			return wrapError("serve: connect database", err,
				"Verify database.url in the configuration.", 1)
		}
		defer pool.Close()
		st = pg.New(pool, app.Entities)
		logger.Info("using postgres store")
	} else {
		st = memory.New(app.Entities)
		logger.Info("using in-memory store")
	}

	opts := schema.Options{
		Store:         st,
		PubSub:        pubsub.NewInMemoryBroker().WithBuffer(16),
		Subscriptions: cfg.Subscriptions,
		CustomsDir:    cfg.CustomsDir,
		Customs:       app.Customs,
		Tracer:        tracer,
	}
	srv, err := newGraphQLServer(app, opts)
	if err != nil {
		return wrapError("serve: build schema", err,
			"Fix the entity metadata or custom resolver descriptors.", 1)
	}

	if cfg.CustomsDir != "" {
		watcher, err := customs.Watch(cfg.CustomsDir)
		if err != nil {
			return wrapError("serve: watch customs directory", err, "", 1)
		}
		defer watcher.Close()
		go func() {
			for range watcher.Events() {
				if err := srv.rebuild(); err != nil {
					logger.Error("schema rebuild failed", zap.Error(err))
					continue
				}
				logger.Info("schema rebuilt after customs change")
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// graphQLServer executes requests against the current schema and swaps the
// schema in place when custom resolvers change on disk.
type graphQLServer struct {
	app  App
	opts schema.Options

	mu     sync.RWMutex
	schema graphql.Schema
}

func newGraphQLServer(app App, opts schema.Options) (*graphQLServer, error) {
	srv := &graphQLServer{app: app, opts: opts}
	if err := srv.rebuild(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *graphQLServer) rebuild() error {
	built, err := schema.Assemble(s.app.Entities, s.opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.schema = built
	s.mu.Unlock()
	return nil
}

func (s *graphQLServer) current() graphql.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (s *graphQLServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Each request gets its own association cache.
	ctx := batch.WithCache(r.Context())
	result := graphql.Do(graphql.Params{
		Schema:         s.current(),
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}
