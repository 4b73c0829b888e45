package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nutrition-scraper/internal/metrics"
	"github.com/sells-group/nutrition-scraper/internal/model"
	"github.com/sells-group/nutrition-scraper/internal/pipeline"
	"github.com/sells-group/nutrition-scraper/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and metrics over HTTP and trigger runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var (
			st      store.Store
			m       *metrics.Metrics
			trigger *runTrigger
		)
		if err := cfg.Validate("run"); err != nil {
			zap.L().Warn("serve: run trigger disabled", zap.Error(err))
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			st, m = s, metrics.New()
		} else {
			env, err := initPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			st, m = env.Store, env.Metrics
			trigger = newRunTrigger(ctx, env.Pipeline)
		}
		if st == nil {
			return eris.New("serve: run history store unavailable")
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(st, m, trigger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if trigger != nil {
			trigger.Wait()
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

// stageRunner runs pipeline stages.
type stageRunner interface {
	Collect(ctx context.Context) (*pipeline.Summary, error)
	Scrape(ctx context.Context) (*pipeline.Summary, error)
	RunAll(ctx context.Context) (*pipeline.Summary, error)
}

// runTrigger starts pipeline runs in the background, one at a time. Runs
// inherit ctx, so they stop when the server shuts down.
type runTrigger struct {
	ctx    context.Context
	runner stageRunner
	busy   atomic.Bool
	wg     sync.WaitGroup
}

func newRunTrigger(ctx context.Context, runner stageRunner) *runTrigger {
	return &runTrigger{ctx: ctx, runner: runner}
}

var errUnknownKind = errors.New("unknown run kind")

// Start launches a run of kind. It reports false when a run is already in
// progress.
func (t *runTrigger) Start(kind model.RunKind) (bool, error) {
	var stage func(context.Context) (*pipeline.Summary, error)
	switch kind {
	case model.RunKindCollect:
		stage = t.runner.Collect
	case model.RunKindScrape:
		stage = t.runner.Scrape
	case model.RunKindFull:
		stage = t.runner.RunAll
	default:
		return false, eris.Wrapf(errUnknownKind, "serve: %q", kind)
	}

	if !t.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.busy.Store(false)

		sum, err := stage(t.ctx)
		if err != nil {
			zap.L().Warn("triggered run ended without output", zap.String("kind", string(kind)), zap.Error(explain(err)))
			return
		}
		zap.L().Info("triggered run complete",
			zap.String("kind", string(kind)),
			zap.String("run_id", sum.RunID),
			zap.Int("records", len(sum.Records)),
		)
	}()
	return true, nil
}

// Wait blocks until the background run, if any, has finished.
func (t *runTrigger) Wait() {
	t.wg.Wait()
}

// buildRouter exposes run history, health and metrics. POST /runs is served
// only when trigger is non-nil.
func buildRouter(st store.Store, m *metrics.Metrics, trigger *runTrigger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.RunFilter{
			Kind:   model.RunKind(q.Get("kind")),
			Status: model.RunStatus(q.Get("status")),
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			filter.Limit = n
		}

		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("list runs", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Post("/runs", func(w http.ResponseWriter, r *http.Request) {
		if trigger == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run trigger disabled"})
			return
		}

		var req struct {
			Kind model.RunKind `json:"kind"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		started, err := trigger.Start(req.Kind)
		if errors.Is(err, errUnknownKind) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be collect, scrape or full"})
			return
		}
		if !started {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"kind":   string(req.Kind),
		})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		if err != nil {
			zap.L().Error("get run", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
