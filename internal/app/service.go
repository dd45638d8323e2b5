// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/highscore/internal/adapters/postgres"
	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/internal/config"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/ranking"
	"github.com/okian/highscore/internal/domain/submission"
	"github.com/okian/highscore/internal/domain/types"
	"github.com/okian/highscore/pkg/logger"
	"github.com/okian/highscore/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"
)

const catalogRefreshTimeout = 30 * time.Second

// Service implements the API dependencies for the highscore system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	catalog  *catalog.Catalog
	ranking  *ranking.Engine
	coord    *submission.Coordinator
	cron     *cron.Cron
	db       *bun.DB
	loader   catalog.Loader
	migrate  bool
	clock    func() time.Time
	location *time.Location

	// Configuration
	storeBackend    string
	catalogSource   string
	catalogFile     string
	catalogRefresh  string
	retryMaxElapsed time.Duration

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreBackend selects the score store: config.StoreMemory or config.StorePostgres.
func WithStoreBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
	}
}

// WithDB sets the database used by postgres-backed components. The caller
// keeps ownership and closes it after Stop.
func WithDB(db *bun.DB) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithMigrations runs pending schema migrations during Start.
func WithMigrations(enabled bool) Option {
	return func(s *Service) {
		s.migrate = enabled
	}
}

// WithCatalogSource selects where the catalog loads from: config.CatalogFile or config.CatalogPostgres.
func WithCatalogSource(source string) Option {
	return func(s *Service) {
		if source != "" {
			s.catalogSource = source
		}
	}
}

// WithCatalogFile sets the YAML file read by the file catalog source.
func WithCatalogFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogFile = path
		}
	}
}

// WithCatalogLoader overrides the catalog source with l.
func WithCatalogLoader(l catalog.Loader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithCatalogRefresh schedules catalog reloads with a standard cron spec.
func WithCatalogRefresh(spec string) Option {
	return func(s *Service) {
		s.catalogRefresh = spec
	}
}

// WithLocation sets the timezone deciding a submission's calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the clock used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithStoreRetryMaxElapsed bounds retries of transient postgres failures.
func WithStoreRetryMaxElapsed(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryMaxElapsed = d
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeBackend:    config.StoreMemory,
		catalogSource:   config.CatalogFile,
		catalogFile:     "catalog.yaml",
		retryMaxElapsed: 2 * time.Second,
		location:        time.UTC,
		clock:           time.Now,
		logger:          nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the catalog, the store and the domain components, then
// schedules catalog refreshes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	log := s.logger.Named("service")
	log.Info(ctx, "starting highscore service...")

	if s.storeBackend == config.StorePostgres && s.loader == nil && s.catalogSource != config.CatalogPostgres {
		return fmt.Errorf("%w: catalog source %q", ErrCatalogMismatch, s.catalogSource)
	}

	loader, err := s.catalogLoader()
	if err != nil {
		return err
	}
	cat := catalog.New(catalog.WithLoader(loader), catalog.WithLogger(s.logger))
	if err := cat.Refresh(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}

	var cr *cron.Cron
	if s.catalogRefresh != "" {
		cl := cronLogger{log: s.logger.Named("cron")}
		cr = cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		)
		if _, err := cr.AddFunc(s.catalogRefresh, func() { refreshCatalog(cat, s.logger) }); err != nil {
			_ = store.Close()
			return fmt.Errorf("schedule catalog refresh: %w", err)
		}
		cr.Start()
	}

	s.catalog = cat
	s.store = store
	s.ranking = ranking.New(store, cat)
	s.coord = submission.New(store, cat,
		submission.WithLogger(s.logger.Named("submission")),
		submission.WithLocation(s.location),
		submission.WithClock(s.clock),
	)
	s.cron = cr
	s.started = true
	s.startedAt = time.Now()

	modes, contents := cat.Snapshot().Size()
	log.Info(ctx, "highscore service started",
		logger.String("store", s.storeBackend),
		logger.String("catalog", s.catalogSource),
		logger.Int("modes", modes),
		logger.Int("contents", contents),
		logger.String("timezone", s.location.String()),
	)
	return nil
}

func (s *Service) catalogLoader() (catalog.Loader, error) {
	if s.loader != nil {
		return s.loader, nil
	}
	switch s.catalogSource {
	case config.CatalogFile:
		return catalog.NewFileLoader(s.catalogFile), nil
	case config.CatalogPostgres:
		if s.db == nil {
			return nil, fmt.Errorf("catalog: %w", ErrNoDatabase)
		}
		return postgres.NewCatalogLoader(s.db), nil
	default:
		return nil, fmt.Errorf("%w: catalog source %q", ErrUnknownBackend, s.catalogSource)
	}
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeBackend {
	case config.StoreMemory:
		return repository.NewMemoryStore(ctx), nil
	case config.StorePostgres:
		if s.db == nil {
			return nil, fmt.Errorf("store: %w", ErrNoDatabase)
		}
		if s.migrate {
			if err := postgres.Migrate(ctx, s.db, s.logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return postgres.NewStore(s.db,
			postgres.WithLogger(s.logger.Named("postgres")),
			postgres.WithRetryMaxElapsed(s.retryMaxElapsed),
		), nil
	default:
		return nil, fmt.Errorf("%w: store %q", ErrUnknownBackend, s.storeBackend)
	}
}

func refreshCatalog(cat *catalog.Catalog, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), catalogRefreshTimeout)
	defer cancel()
	if err := cat.Refresh(ctx); err != nil {
		log.Warn(ctx, "scheduled catalog refresh failed", logger.Error(err))
	}
}

// Stop stops scheduled work and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping highscore service...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "highscore service stopped")
}

// running returns the coordinator and ranking engine, or ErrNotStarted.
func (s *Service) running() (*submission.Coordinator, *ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.coord, s.ranking, nil
}

// Submit applies a score submission.
func (s *Service) Submit(ctx context.Context, req submission.Request) (model.Outcome, error) {
	coord, _, err := s.running()
	if err != nil {
		return model.Outcome{}, err
	}
	return coord.Apply(ctx, req)
}

// PersonalBest returns the player's best on a game.
func (s *Service) PersonalBest(ctx context.Context, player model.Player, modeSlug, contentSlug string, modifier int) (types.PersonalBest, error) {
	coord, _, err := s.running()
	if err != nil {
		return types.PersonalBest{}, err
	}
	return coord.PersonalBest(ctx, player, modeSlug, contentSlug, modifier)
}

// Leaderboard returns the ranked rows of a game.
func (s *Service) Leaderboard(ctx context.Context, modeSlug, contentSlug string, modifier int) ([]types.RankedRow, error) {
	coord, engine, err := s.running()
	if err != nil {
		return nil, err
	}
	game, err := coord.ResolveGame(modeSlug, contentSlug, modifier)
	if err != nil {
		return nil, err
	}
	return engine.Rank(ctx, game.Key)
}

// Modes lists the catalog's game modes.
func (s *Service) Modes(context.Context) []model.ModeRef {
	if cat := s.currentCatalog(); cat != nil {
		return cat.Snapshot().Modes()
	}
	return []model.ModeRef{}
}

// Contents lists the catalog's game contents.
func (s *Service) Contents(context.Context) []model.ContentRef {
	if cat := s.currentCatalog(); cat != nil {
		return cat.Snapshot().Contents()
	}
	return []model.ContentRef{}
}

// RefreshCatalog reloads the catalog now.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	cat := s.currentCatalog()
	if cat == nil {
		return ErrNotStarted
	}
	return cat.Refresh(ctx)
}

func (s *Service) currentCatalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil
	}
	return s.catalog
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"storeBackend":   s.storeBackend,
		"catalogSource":  s.catalogSource,
		"catalogRefresh": s.catalogRefresh,
		"timezone":       s.location.String(),
	}

	if s.started {
		modes, contents := s.catalog.Snapshot().Size()
		stats["modes"] = modes
		stats["contents"] = contents
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		metrics.UpdateCatalogSize(modes, contents)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalEntries"] = n
			metrics.UpdateStoreEntries(n)
		} else {
			stats["storeError"] = err.Error()
		}
	}

	return stats
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (cl cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.log.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (cl cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.log.Error(context.Background(), msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
