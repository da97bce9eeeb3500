package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Options struct {
	Addr            string
	Agent           string
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

type Runtime struct {
	opts      Options
	logger    *zap.Logger
	startedAt time.Time
	server    *http.Server
}

func NewRuntime(options Options) (*Runtime, error) {
	options = normalizeOptions(options)
	runtime := &Runtime{
		opts:      options,
		logger:    options.Logger,
		startedAt: time.Now().UTC(),
	}
	mux := http.NewServeMux()
	runtime.registerRoutes(mux)
	runtime.server = &http.Server{
		Addr:              options.Addr,
		Handler:           runtime.logRequests(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime, nil
}

func normalizeOptions(options Options) Options {
	if options.Addr == "" {
		options.Addr = ":8080"
	}
	if options.Agent == "" {
		options.Agent = "autolaunch"
	}
	if options.ShutdownTimeout <= 0 {
		options.ShutdownTimeout = 5 * time.Second
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}

func (r *Runtime) Handler() http.Handler {
	return r.server.Handler
}

// Run serves until ctx is cancelled, then shuts down within ShutdownTimeout.
func (r *Runtime) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", r.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.opts.Addr, err)
	}
	return r.Serve(ctx, listener)
}

func (r *Runtime) Serve(ctx context.Context, listener net.Listener) error {
	if r == nil {
		return fmt.Errorf("runtime is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.logger.Info("health server listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := r.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.opts.ShutdownTimeout)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	r.logger.Info("health server stopped", zap.Duration("uptime", time.Since(r.startedAt)))
	return nil
}

func (r *Runtime) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, req)
		r.logger.Debug("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
