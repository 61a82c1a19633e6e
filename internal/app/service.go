// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hooplab/passport/internal/adapters/ai"
	"github.com/hooplab/passport/internal/adapters/cache"
	jobqueue "github.com/hooplab/passport/internal/adapters/mq/queue"
	workerpool "github.com/hooplab/passport/internal/adapters/mq/worker"
	"github.com/hooplab/passport/internal/adapters/store"
	"github.com/hooplab/passport/internal/domain/content"
	"github.com/hooplab/passport/internal/domain/lease"
	"github.com/hooplab/passport/internal/domain/model"
	"github.com/hooplab/passport/internal/domain/prompt"
	"github.com/hooplab/passport/internal/domain/ratelimit"
	"github.com/hooplab/passport/internal/domain/stats"
	"github.com/hooplab/passport/pkg/logger"
	"github.com/hooplab/passport/pkg/metrics"
)

const leaseRetryDelay = 100 * time.Millisecond

// Service orchestrates report generation: it accepts requests, owns the
// queue and worker pool, and runs the generation pipeline for each job.
type Service struct {
	mu sync.RWMutex

	// Core components
	reports   store.ReportStore
	players   store.PlayerStore
	cache     cache.Cache
	client    ai.Client
	queue     jobqueue.Queue
	pool      *workerpool.Pool
	leaser    lease.Leaser
	limiter   *ratelimit.Limiter
	validator *content.Validator

	// Configuration
	workerCount    int
	queueSize      int
	minGames       int
	maxGames       int
	reportsPerHour int
	cacheTTL       time.Duration
	aiTimeout      time.Duration
	guardrails     content.Guardrails

	// State
	started bool

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of generation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued generation jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithGameWindow sets the minimum games required for a report and the
// maximum games included in one.
func WithGameWindow(min, max int) Option {
	return func(s *Service) {
		if min > 0 {
			s.minGames = min
		}
		if max >= min {
			s.maxGames = max
		}
	}
}

// WithReportsPerHour caps report requests per owner.
func WithReportsPerHour(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportsPerHour = n
		}
	}
}

// WithCacheTTL sets the fingerprint cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithAITimeout bounds one generation attempt budget. The fingerprint lease
// expires on the same budget.
func WithAITimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.aiTimeout = d
		}
	}
}

// WithGuardrails sets the content safety term lists.
func WithGuardrails(g content.Guardrails) Option {
	return func(s *Service) {
		s.guardrails = g
	}
}

// WithReportStore injects the report store backend.
func WithReportStore(rs store.ReportStore) Option {
	return func(s *Service) {
		s.reports = rs
	}
}

// WithPlayerStore injects the player store backend.
func WithPlayerStore(ps store.PlayerStore) Option {
	return func(s *Service) {
		s.players = ps
	}
}

// WithCache injects the fingerprint cache backend.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithAIClient injects the model client. Retry policy should already be
// applied by the caller.
func WithAIClient(c ai.Client) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		minGames:       3,
		maxGames:       10,
		reportsPerHour: 10,
		cacheTTL:       time.Hour,
		aiTimeout:      2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires any components not injected and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Named("service")
	}

	s.log.Info(ctx, "starting report service")

	if s.reports == nil {
		s.reports = store.NewMemoryReportStore()
	}
	if s.players == nil {
		s.players = store.NewMemoryPlayerStore()
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache(cache.WithMemoryTTL(s.cacheTTL))
	}
	if s.client == nil {
		s.client = ai.NewStaticClient()
		s.log.Info(ctx, "no model client configured, using offline generation")
	}

	s.leaser = lease.NewInMemoryLeaser(lease.WithTTL(s.aiTimeout))
	s.limiter = ratelimit.New(time.Hour, s.reportsPerHour)
	s.validator = content.NewValidator(s.guardrails)
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.log.Info(ctx, "report service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("min_games", s.minGames),
	)
	return nil
}

// Stop drains the queue and shuts the worker pool down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.log.Info(ctx, "stopping report service")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.log.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.started = false
	s.log.Info(ctx, "report service stopped")
}

// CreatePlayer registers a player, assigning an ID when absent.
func (s *Service) CreatePlayer(ctx context.Context, player *model.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now().UTC()
	}
	return s.players.CreatePlayer(ctx, player)
}

// GetPlayer returns a player by ID.
func (s *Service) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	return s.players.GetPlayer(ctx, id)
}

// AddGame validates and appends a game to a player's log.
func (s *Service) AddGame(ctx context.Context, game *model.PlayerGame) error {
	if err := game.Validate(); err != nil {
		return err
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now().UTC()
	}
	return s.players.AddGame(ctx, game)
}

// ListGames returns a player's most recent games.
func (s *Service) ListGames(ctx context.Context, playerID string, limit int) ([]model.PlayerGame, error) {
	return s.players.ListGames(ctx, playerID, limit)
}

// RequestReport accepts a generation request over an explicit game
// selection, or over the player's most recent games when gameIDs is empty.
// It creates a pending report, enqueues the job, and returns immediately;
// callers poll the report for completion.
func (s *Service) RequestReport(ctx context.Context, playerID string, gameIDs []string) (*model.Report, error) {
	player, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var games []model.PlayerGame
	if len(gameIDs) == 0 {
		games, err = s.players.ListGames(ctx, playerID, s.maxGames)
	} else {
		games, err = s.selectGames(ctx, playerID, gameIDs)
	}
	if err != nil {
		return nil, err
	}
	if len(games) < s.minGames {
		return nil, fmt.Errorf("%w: need at least %d games, have %d",
			model.ErrInsufficientData, s.minGames, len(games))
	}

	if !s.limiter.Allow(player.OwnerID) {
		metrics.RecordRateLimited()
		return nil, fmt.Errorf("%w: %d reports per hour", model.ErrRateLimited, s.reportsPerHour)
	}

	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}

	token, err := store.NewShareToken()
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		ID:            uuid.NewString(),
		PlayerID:      playerID,
		GameIDs:       ids,
		Fingerprint:   prompt.Fingerprint(playerID, ids),
		Status:        model.StatusPending,
		ReportWindow:  prompt.ReportWindow(games),
		PromptVersion: prompt.Version,
		ShareToken:    token,
		CorrelationID: uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	job := jobqueue.Job{
		ReportID:      report.ID,
		PlayerID:      playerID,
		GameIDs:       ids,
		Fingerprint:   report.Fingerprint,
		CorrelationID: report.CorrelationID,
		EnqueuedAt:    time.Now().UTC(),
	}
	if !s.queue.Enqueue(ctx, job) {
		if failErr := s.reports.Fail(ctx, report.ID, "generation queue full"); failErr != nil {
			s.log.Error(ctx, "failed to mark rejected report",
				logger.String("report_id", report.ID), logger.Error(failErr))
		}
		metrics.RecordReportFailed("queue_full")
		return nil, model.ErrBusy
	}

	metrics.RecordReportRequested()
	s.log.Info(ctx, "report accepted",
		logger.String("report_id", report.ID),
		logger.String("player_id", playerID),
		logger.String("fingerprint", report.Fingerprint),
		logger.String("correlation_id", report.CorrelationID),
	)
	return report, nil
}

// selectGames resolves a caller-selected game list. Every requested ID must
// belong to the player; duplicates collapse to one game.
func (s *Service) selectGames(ctx context.Context, playerID string, gameIDs []string) ([]model.PlayerGame, error) {
	all, err := s.players.ListGames(ctx, playerID, 0)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.PlayerGame, len(all))
	for _, g := range all {
		byID[g.ID] = g
	}

	games := make([]model.PlayerGame, 0, len(gameIDs))
	seen := make(map[string]bool, len(gameIDs))
	for _, id := range gameIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		game, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: game %s", model.ErrNotFound, id)
		}
		games = append(games, game)
	}
	return games, nil
}

// GetReport returns a report by ID.
func (s *Service) GetReport(ctx context.Context, id string) (*model.Report, error) {
	return s.reports.Get(ctx, id)
}

// GetSharedReport resolves a share token. Only completed reports are
// visible through tokens; anything else reads as not found.
func (s *Service) GetSharedReport(ctx context.Context, token string) (*model.Report, error) {
	report, err := s.reports.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if report.Status != model.StatusCompleted {
		return nil, model.ErrNotFound
	}
	return report, nil
}

// ListReports returns a player's reports, newest first.
func (s *Service) ListReports(ctx context.Context, playerID string, limit int) ([]*model.Report, error) {
	if _, err := s.players.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	return s.reports.ListByPlayer(ctx, playerID, limit)
}

// Process runs the generation pipeline for one queued job. It implements
// the worker pool's Generator contract.
func (s *Service) Process(ctx context.Context, job jobqueue.Job) error {
	start := time.Now()

	if !s.leaser.TryAcquire(ctx, job.Fingerprint) {
		// Another worker is generating the same fingerprint. Requeue
		// after a beat so this report can ride the cache it will fill.
		metrics.RecordLeaseConflict()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leaseRetryDelay):
		}
		if !s.queue.Enqueue(ctx, job) {
			return s.fail(ctx, job, "queue_full", "generation queue full")
		}
		return nil
	}
	defer s.leaser.Release(ctx, job.Fingerprint)

	if cached, ok := s.cache.Get(ctx, job.Fingerprint); ok {
		if err := s.reports.Complete(ctx, job.ReportID, cached, "cache"); err != nil {
			return fmt.Errorf("complete from cache: %w", err)
		}
		metrics.RecordReportCompleted()
		metrics.RecordGenerationLatency(float64(time.Since(start).Milliseconds()))
		s.log.Info(ctx, "report served from cache",
			logger.String("report_id", job.ReportID),
			logger.String("correlation_id", job.CorrelationID),
		)
		return nil
	}

	if err := s.reports.MarkGenerating(ctx, job.ReportID); err != nil {
		return fmt.Errorf("mark generating: %w", err)
	}

	player, games, err := s.loadInputs(ctx, job)
	if err != nil {
		return s.fail(ctx, job, "missing_inputs", err.Error())
	}

	summary := stats.Summarize(games)
	req, err := prompt.Build(*player, summary)
	if err != nil {
		return s.fail(ctx, job, "prompt_error", err.Error())
	}

	genCtx, cancel := context.WithTimeout(ai.WithCorrelationID(ctx, job.CorrelationID), s.aiTimeout)
	defer cancel()

	result, err := s.client.Generate(genCtx, req)
	if err != nil {
		// The row carries the generic taxonomy text; the raw upstream
		// error stays in the logs.
		reason, detail := "upstream_error", model.ErrUpstreamError.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason, detail = "upstream_timeout", model.ErrUpstreamTimeout.Error()
		}
		s.log.Warn(ctx, "generation call failed",
			logger.String("report_id", job.ReportID),
			logger.String("correlation_id", job.CorrelationID),
			logger.Error(err),
		)
		return s.fail(ctx, job, reason, detail)
	}

	parsed, err := content.Parse(result.Text)
	if err != nil {
		return s.fail(ctx, job, "malformed_response", err.Error())
	}
	if err := s.validator.Validate(parsed, summary.Aggregate); err != nil {
		return s.fail(ctx, job, "content_rejected", err.Error())
	}

	raw, err := parsed.Marshal()
	if err != nil {
		return s.fail(ctx, job, "encode_error", err.Error())
	}

	if err := s.reports.Complete(ctx, job.ReportID, raw, result.Model); err != nil {
		return fmt.Errorf("complete report: %w", err)
	}
	s.cache.Put(ctx, job.Fingerprint, raw)

	metrics.RecordReportCompleted()
	metrics.RecordGenerationLatency(float64(time.Since(start).Milliseconds()))
	s.log.Info(ctx, "report completed",
		logger.String("report_id", job.ReportID),
		logger.String("model", result.Model),
		logger.String("correlation_id", job.CorrelationID),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// loadInputs fetches the player and exactly the games the job was created
// for. Games added after acceptance do not leak into the report.
func (s *Service) loadInputs(ctx context.Context, job jobqueue.Job) (*model.Player, []model.PlayerGame, error) {
	player, err := s.players.GetPlayer(ctx, job.PlayerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load player: %w", err)
	}

	all, err := s.players.ListGames(ctx, job.PlayerID, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("load games: %w", err)
	}

	wanted := make(map[string]bool, len(job.GameIDs))
	for _, id := range job.GameIDs {
		wanted[id] = true
	}
	games := make([]model.PlayerGame, 0, len(job.GameIDs))
	for _, g := range all {
		if wanted[g.ID] {
			games = append(games, g)
		}
	}
	if len(games) != len(job.GameIDs) {
		return nil, nil, fmt.Errorf("expected %d games, found %d", len(job.GameIDs), len(games))
	}
	return player, games, nil
}

func (s *Service) fail(ctx context.Context, job jobqueue.Job, reason, detail string) error {
	metrics.RecordReportFailed(reason)
	s.log.Warn(ctx, "report generation failed",
		logger.String("report_id", job.ReportID),
		logger.String("reason", reason),
		logger.String("detail", detail),
		logger.String("correlation_id", job.CorrelationID),
	)
	if err := s.reports.Fail(ctx, job.ReportID, detail); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]interface{}{
		"started":          s.started,
		"worker_count":     s.workerCount,
		"queue_capacity":   s.queueSize,
		"min_games":        s.minGames,
		"max_games":        s.maxGames,
		"reports_per_hour": s.reportsPerHour,
	}
	if !s.started {
		return out
	}

	queueLen := s.queue.Len(ctx)
	out["queue_length"] = queueLen
	metrics.UpdateQueueSize(queueLen)

	cacheStats := s.cache.Stats()
	out["cache_hits"] = cacheStats.Hits
	out["cache_misses"] = cacheStats.Misses
	out["cache_errors"] = cacheStats.Errors
	out["leases_held"] = s.leaser.Size()

	if total, err := s.reports.Count(ctx); err == nil {
		out["total_reports"] = total
		metrics.UpdateTotalReports(int(total))
	}
	if total, err := s.players.CountPlayers(ctx); err == nil {
		out["total_players"] = total
		metrics.UpdateTotalPlayers(int(total))
	}
	return out
}
