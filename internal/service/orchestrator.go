package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/models"
)

// ErrUnknownTenant is returned by TriggerRun when the identifier matches
// no registered brand.
var ErrUnknownTenant = errors.New("unknown tenant")

// Registry resolves tenants and their automation gates.
type Registry interface {
	ListActiveBrands(ctx context.Context) ([]models.Brand, RegistrySource)
	ResolveBrand(ctx context.Context, identifier string) (*models.Brand, error)
	AutomationEnabled(ctx context.Context, tenantID string) bool
}

// SocialSyncer supplies mention batches and bulk resyncs.
type SocialSyncer interface {
	GetMentions(ctx context.Context, brand models.Brand) []models.SocialPost
	SyncAll(ctx context.Context, brands []models.Brand)
}

// DecisionMaker is the stateless reasoning component.
type DecisionMaker interface {
	Decide(ctx context.Context, signals Signals) []ProposedAction
}

// Briefer generates the daily intelligence briefs.
type Briefer interface {
	GenerateAll(ctx context.Context, brands []models.Brand)
}

// RunOutcome is the result of one on-demand trigger.
type RunOutcome struct {
	TenantID  string                 `json:"tenant_id"`
	Skipped   bool                   `json:"skipped"`
	Reason    string                 `json:"reason,omitempty"`
	Decisions []models.AgentDecision `json:"decisions"`
}

// Orchestrator is the heartbeat: it fans recurring jobs out across the
// registry, isolates per-tenant failures, and persists surviving
// decisions.
type Orchestrator struct {
	config    *config.AgentConfig
	logger    *zap.Logger
	registry  Registry
	social    SocialSyncer
	brain     DecisionMaker
	decisions DecisionStore
	market    MarketSource
	briefer   Briefer
	now       func() time.Time
	tickers   []*time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewOrchestrator(cfg *config.AgentConfig, logger *zap.Logger, registry Registry, social SocialSyncer, brain DecisionMaker, decisions DecisionStore, market MarketSource, briefer Briefer) *Orchestrator {
	return &Orchestrator{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		social:    social,
		brain:     brain,
		decisions: decisions,
		market:    market,
		briefer:   briefer,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.config.Enabled {
		o.logger.Info("Agent orchestrator is disabled")
		return nil
	}

	cycleInterval := config.Duration(o.config.CycleInterval, time.Hour)
	resyncInterval := config.Duration(o.config.ResyncInterval, 24*time.Hour)
	briefingInterval := config.Duration(o.config.BriefingInterval, 24*time.Hour)
	backupInterval := config.Duration(o.config.BackupInterval, 24*time.Hour)
	bootupDelay := config.Duration(o.config.BootupDelay, 30*time.Second)

	o.logger.Info("Starting agent orchestrator",
		zap.Duration("cycle_interval", cycleInterval),
		zap.Duration("resync_interval", resyncInterval))

	// Bootup sync runs once, shortly after start.
	go func() {
		select {
		case <-time.After(bootupDelay):
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		}
		o.logger.Info("Running bootup sync")
		o.ResyncAll(ctx)
	}()

	o.startJob(ctx, "decision_cycle", cycleInterval, func() {
		if err := o.RunCycle(ctx); err != nil {
			o.logger.Error("Decision cycle aborted", zap.Error(err))
		}
	})
	o.startJob(ctx, "cache_resync", resyncInterval, func() {
		o.ResyncAll(ctx)
	})
	if o.briefer != nil {
		o.startJob(ctx, "daily_briefing", briefingInterval, func() {
			brands, _ := o.registry.ListActiveBrands(ctx)
			o.briefer.GenerateAll(ctx, brands)
		})
	}
	o.startJob(ctx, "nightly_backup", backupInterval, func() {
		if err := o.decisions.Backup(ctx, o.config.BackupLimit); err != nil {
			o.logger.Error("Backup failed", zap.Error(err))
		}
	})
	o.startJob(ctx, "retention", backupInterval, func() {
		cutoff := o.now().AddDate(0, 0, -o.config.RetentionDays)
		pruned, err := o.decisions.Prune(ctx, cutoff)
		if err != nil {
			o.logger.Error("Retention sweep failed", zap.Error(err))
			return
		}
		o.logger.Info("Retention sweep completed", zap.Int64("pruned", pruned))
	})

	return nil
}

// startJob runs fn on every tick until the orchestrator stops. Each job is
// an independent trigger; a failing invocation is retried at the next tick.
func (o *Orchestrator) startJob(ctx context.Context, name string, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	o.tickers = append(o.tickers, ticker)

	go func() {
		for {
			select {
			case <-ticker.C:
				o.logger.Debug("Running scheduled job", zap.String("job", name))
				fn()
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		for _, ticker := range o.tickers {
			ticker.Stop()
		}
		close(o.stopCh)
		o.logger.Info("Agent orchestrator stopped")
	})
}

// ResyncAll refreshes the social cache for every tenant whose automation
// gate is enabled. The gate applies to all scheduled work, not just the
// decision cycle: a disabled tenant is never scraped.
func (o *Orchestrator) ResyncAll(ctx context.Context) (int, RegistrySource) {
	brands, source := o.registry.ListActiveBrands(ctx)

	eligible := make([]models.Brand, 0, len(brands))
	for _, brand := range brands {
		if !o.registry.AutomationEnabled(ctx, brand.ID) {
			o.logger.Debug("Automation disabled, skipping tenant sync", zap.String("tenant_id", brand.ID))
			continue
		}
		eligible = append(eligible, brand)
	}

	o.social.SyncAll(ctx, eligible)
	return len(eligible), source
}

// RunCycle executes one decision cycle across all active tenants. Only a
// job-wide dependency loss (store unreachable) aborts the invocation; a
// single tenant failing is logged and the loop continues.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if err := o.decisions.Ping(ctx); err != nil {
		return errors.New("decision store unreachable: " + err.Error())
	}

	brands, source := o.registry.ListActiveBrands(ctx)
	if source != SourceRegistry {
		o.logger.Warn("Running cycle with degraded registry", zap.String("source", string(source)))
	}

	start := o.now()
	decided := 0
	for _, brand := range brands {
		if !o.registry.AutomationEnabled(ctx, brand.ID) {
			o.logger.Debug("Automation disabled, skipping tenant", zap.String("tenant_id", brand.ID))
			continue
		}

		persisted, err := o.runTenant(ctx, brand)
		if err != nil {
			o.logger.Error("Tenant cycle failed",
				zap.String("tenant_id", brand.ID),
				zap.Error(err))
			continue
		}
		decided += len(persisted)
	}

	o.logger.Info("Decision cycle completed",
		zap.Int("tenants", len(brands)),
		zap.Int("decisions", decided),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// runTenant is the single-tenant pipeline: fetch signals concurrently,
// decide, filter, persist.
func (o *Orchestrator) runTenant(ctx context.Context, brand models.Brand) ([]models.AgentDecision, error) {
	var (
		wg       sync.WaitGroup
		metrics  *TopicMetrics
		trends   []TrendItem
		mentions []models.SocialPost
	)

	// Market signals and mentions hit independent providers, so the two
	// fetches run concurrently.
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		metrics, err = o.market.TopicMetrics(ctx, brand.Topic)
		if err != nil {
			o.logger.Warn("Failed to fetch topic metrics",
				zap.String("tenant_id", brand.ID), zap.Error(err))
		}
		trends, err = o.market.TopicNews(ctx, brand.Topic, 5)
		if err != nil {
			o.logger.Warn("Failed to fetch topic news",
				zap.String("tenant_id", brand.ID), zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		mentions = o.social.GetMentions(ctx, brand)
	}()
	wg.Wait()

	actions := o.brain.Decide(ctx, Signals{
		Brand:    brand,
		Metrics:  metrics,
		Trends:   trends,
		Mentions: mentions,
	})

	persisted := make([]models.AgentDecision, 0, len(actions))
	for _, action := range actions {
		if !models.KnownAction(action.Action) {
			if action.Action == models.ActionError {
				o.logger.Warn("Brain returned error decision",
					zap.String("tenant_id", brand.ID),
					zap.String("reason", action.Reason))
			}
			continue
		}

		decision := models.AgentDecision{
			TenantID: brand.ID,
			Action:   action.Action,
			TargetID: action.TargetID,
			Reason:   action.Reason,
			Draft:    action.Draft,
			Status:   models.StatusPending,
		}
		if err := o.decisions.Insert(ctx, &decision); err != nil {
			return persisted, err
		}
		persisted = append(persisted, decision)
	}

	return persisted, nil
}

// TriggerRun resolves a tenant by id or name and runs the single-tenant
// pipeline synchronously, so a caller can force a cycle without waiting
// for the next tick.
func (o *Orchestrator) TriggerRun(ctx context.Context, identifier string) (*RunOutcome, error) {
	brand, err := o.registry.ResolveBrand(ctx, identifier)
	if err != nil || brand == nil {
		return nil, ErrUnknownTenant
	}

	if !o.registry.AutomationEnabled(ctx, brand.ID) {
		return &RunOutcome{
			TenantID: brand.ID,
			Skipped:  true,
			Reason:   "automation disabled",
		}, nil
	}

	persisted, err := o.runTenant(ctx, *brand)
	if err != nil {
		return nil, err
	}

	return &RunOutcome{
		TenantID:  brand.ID,
		Decisions: persisted,
	}, nil
}
