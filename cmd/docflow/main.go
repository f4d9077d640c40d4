package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/copperline/docflow"
	"github.com/copperline/docflow/internal/config"
	"github.com/copperline/docflow/internal/loader"
	"github.com/copperline/docflow/pkg/log"
)

// The docflow binary is operator tooling around the flow store and the
// diagnostics API. The activity itself is embedded into a worker by the
// surrounding job system; it is not started from here, so serve runs the
// full stack with no flow runner attached.
//
//	docflow serve        start the diagnostics HTTP server
//	docflow flows        list discoverable flow definitions
//	docflow show <name>  print one definition as JSON

type docflow struct {
	cfg        *config.Config
	loader     *loader.Loader
	httpServer *http.Server
	quit       chan os.Signal
}

const shutdownTimeout = 10 * time.Second

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &docflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = s.serve()
	case "flows":
		err = s.listFlows()
	case "show":
		if len(os.Args) < 3 {
			err = errors.New("usage: docflow show <name>")
		} else {
			err = s.showFlow(os.Args[2])
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		slog.Error("Command failed", log.Error(err))
		os.Exit(1)
	}
}

func (s *docflow) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}

func (s *docflow) openLoader(ctx context.Context) error {
	ld, err := loader.New(ctx, s.cfg.FlowDir, s.cfg.FlowCacheSize)
	if err != nil {
		return err
	}
	s.loader = ld
	return nil
}

func (s *docflow) serve() error {
	ctx := context.Background()
	svc, err := app.NewService(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	addr := fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: svc.Handler(),
	}

	go func() {
		slog.Info("Diagnostics API listening",
			slog.String("addr", addr),
			slog.String("flow_dir", s.cfg.FlowDir))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", log.Error(err))
			s.quit <- syscall.SIGTERM
		}
	}()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *docflow) listFlows() error {
	ctx := context.Background()
	if err := s.openLoader(ctx); err != nil {
		return err
	}
	defer func() { _ = s.loader.Close() }()

	flows, err := s.loader.List(ctx)
	if err != nil {
		return err
	}
	for _, f := range flows {
		fmt.Println(f)
	}
	return nil
}

func (s *docflow) showFlow(name string) error {
	ctx := context.Background()
	if err := s.openLoader(ctx); err != nil {
		return err
	}
	defer func() { _ = s.loader.Close() }()

	flow, err := s.loader.LoadByName(ctx, name)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
