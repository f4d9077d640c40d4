package docflow

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/copperline/docflow/internal/activity"
	"github.com/copperline/docflow/internal/chunks"
	"github.com/copperline/docflow/internal/config"
	"github.com/copperline/docflow/internal/enrich"
	"github.com/copperline/docflow/internal/events"
	"github.com/copperline/docflow/internal/loader"
	"github.com/copperline/docflow/internal/server"
	"github.com/copperline/docflow/pkg/api"
)

// Service is the assembled activity stack: flow loader, chunk client with
// optional Redis read-through cache, citation enrichment, lifecycle event
// hub, and the diagnostics API. The flow runner is the one collaborator the
// embedding worker must supply; everything else is wired from environment
// configuration
type Service struct {
	cfg      *config.Config
	loader   *loader.Loader
	hub      *events.Hub
	activity *activity.Activity
	rdb      *redis.Client
}

// ErrChunkServiceURLEmpty is returned when annotation is enabled without a
// chunk service to resolve citations against
var ErrChunkServiceURLEmpty = errors.New(
	"CHUNK_SERVICE_URL required when annotation is enabled")

// NewService assembles a service from environment configuration. A nil
// runner factory yields a service whose Process always fails with
// ErrDependencyUnavailable; the diagnostics API still works, which is what
// the standalone binary uses
func NewService(
	ctx context.Context, runners api.RunnerFactory,
) (*Service, error) {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newService(ctx, cfg, runners)
}

func newService(
	ctx context.Context, cfg *config.Config, runners api.RunnerFactory,
) (*Service, error) {
	s := &Service{cfg: cfg}

	var eng *enrich.Engine
	if cfg.Annotate {
		if cfg.ChunkServiceURL == "" {
			return nil, ErrChunkServiceURLEmpty
		}
		client, err := chunks.NewHTTPClient(
			cfg.ChunkServiceURL, cfg.ChunkTimeout,
		)
		if err != nil {
			return nil, err
		}
		chunkClient := chunks.Client(client)
		if cfg.RedisAddr != "" {
			s.rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			chunkClient = chunks.NewCachedClient(
				chunkClient, s.rdb, cfg.ChunkCacheTTL,
			)
		}
		eng = enrich.New(chunkClient)
	}

	ld, err := loader.New(ctx, cfg.FlowDir, cfg.FlowCacheSize)
	if err != nil {
		return nil, err
	}
	s.loader = ld
	s.hub = events.NewHub()
	s.activity = activity.New(ld, eng, runners, s.hub, activity.Options{
		DefaultFlow: cfg.DefaultFlow,
		Annotate:    cfg.Annotate,
	})
	return s, nil
}

// Process runs one flow invocation end to end
func (s *Service) Process(
	ctx context.Context, jc *api.JobContext, cfg *api.TaskConfig,
) (*api.TaskOutput, error) {
	return s.activity.Process(ctx, jc, cfg)
}

// Handler returns the diagnostics HTTP API
func (s *Service) Handler() http.Handler {
	return server.NewServer(s.loader, s.hub).SetupRoutes()
}

// Close releases the flow store and the Redis connection, if any
func (s *Service) Close() error {
	err := s.loader.Close()
	if s.rdb != nil {
		if cerr := s.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
