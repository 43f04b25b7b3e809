// Package app builds the prediction and profile services from
// configuration.
package app

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/config"
	"github.com/recifedata/crimecast/internal/estimator"
	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/monitoring"
	"github.com/recifedata/crimecast/internal/prediction"
	"github.com/recifedata/crimecast/internal/profile"
	"github.com/recifedata/crimecast/internal/resilience"
	"github.com/recifedata/crimecast/internal/store"
)

// Startup components, as reported by Services.Components.
const (
	ComponentSource       = "table_source"
	ComponentAggregates   = "aggregates"
	ComponentProfiles     = "profiles"
	ComponentEstimator    = "estimator"
	ComponentClusterModel = "cluster_model"
)

// LoadError records which startup component failed.
type LoadError struct {
	Component string
	Err       error
}

func (e *LoadError) Error() string { return "load " + e.Component + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Options tune Bootstrap.
type Options struct {
	// Metrics receives breaker transitions and is handed to the services.
	// May be nil.
	Metrics *monitoring.Metrics
	// Backoff overrides the retry policy for table loads. Attempts
	// defaults to cfg.Data.LoadRetries.
	Backoff resilience.Backoff
	// Strict aborts on the first component failure. It is OR-ed with
	// cfg.Server.Strict.
	Strict bool
	// SkipProfiles leaves the profile tables unloaded, for commands that
	// only predict.
	SkipProfiles bool
}

// Services holds everything built at startup. A nil service failed to
// load or was skipped; Components says which.
type Services struct {
	Aggregates   *aggregate.Table
	Estimator    estimator.Estimator
	ClusterModel estimator.ClusterModel
	Predictions  *prediction.Service
	Batch        *prediction.Orchestrator
	Profiles     *profile.Service
	// Components maps every attempted component to its load error, nil
	// when it loaded.
	Components map[string]error

	source store.Source
}

// Close releases the table source.
func (s *Services) Close() {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			zap.L().Warn("app: close table source", zap.Error(err))
		}
	}
}

// Unavailable explains why resource cannot be served: the first failed
// component among those it depends on, or a plain ResourceUnavailable
// error when none of them was attempted.
func (s *Services) Unavailable(resource string, components ...string) error {
	for _, c := range components {
		if err := s.Components[c]; err != nil {
			return &model.ResourceUnavailableError{Resource: resource, Err: err}
		}
	}
	return &model.ResourceUnavailableError{Resource: resource}
}

type bootstrap struct {
	cfg     *config.Config
	opts    Options
	strict  bool
	backoff resilience.Backoff
	svc     *Services
}

// Bootstrap opens the table source, loads the tables, the estimator and
// the cluster model, and wires the services over them. Without strict
// mode a failed component is logged and recorded and everything that
// does not depend on it is still built. In strict mode the first failure
// is returned as a *LoadError.
func Bootstrap(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	b := &bootstrap{
		cfg:     cfg,
		opts:    opts,
		strict:  opts.Strict || cfg.Server.Strict,
		backoff: opts.Backoff,
		svc:     &Services{Components: make(map[string]error)},
	}
	if b.backoff.Attempts <= 0 {
		b.backoff.Attempts = cfg.Data.LoadRetries
	}

	if err := b.run(ctx); err != nil {
		b.svc.Close()
		return nil, err
	}

	loaded := 0
	for _, err := range b.svc.Components {
		if err == nil {
			loaded++
		}
	}
	zap.L().Info("bootstrap complete",
		zap.Int("components", len(b.svc.Components)),
		zap.Int("loaded", loaded),
		zap.Bool("strict", b.strict),
	)
	return b.svc, nil
}

// record stores the outcome of a component. It returns a *LoadError only
// when the failure must abort startup.
func (b *bootstrap) record(component string, err error) error {
	if err == nil {
		b.svc.Components[component] = nil
		return nil
	}
	le := &LoadError{Component: component, Err: err}
	b.svc.Components[component] = le
	if b.strict {
		return le
	}
	zap.L().Warn("component unavailable", zap.String("component", component), zap.Error(err))
	return nil
}

func (b *bootstrap) run(ctx context.Context) error {
	needSource := b.cfg.Data.IncidentsPath == "" || !b.opts.SkipProfiles
	if needSource {
		src, err := resilience.Retry(ctx, b.backoff, "open table source", func(ctx context.Context) (store.Source, error) {
			return store.Open(ctx, store.Options{
				Driver:      b.cfg.Data.Driver,
				Dir:         b.cfg.Data.Dir,
				Path:        b.cfg.Data.SQLitePath,
				DatabaseURL: b.cfg.Data.DatabaseURL,
				MaxConns:    b.cfg.Data.MaxConns,
			})
		})
		b.svc.source = src
		if err := b.record(ComponentSource, err); err != nil {
			return err
		}
	}

	if err := b.record(ComponentAggregates, b.loadAggregates(ctx)); err != nil {
		return err
	}
	if err := b.record(ComponentEstimator, b.loadEstimator()); err != nil {
		return err
	}
	if b.cfg.Cluster.ModelPath != "" {
		if err := b.record(ComponentClusterModel, b.loadClusterModel()); err != nil {
			return err
		}
	}

	if b.svc.Aggregates != nil && b.svc.Estimator != nil {
		preds, err := prediction.NewService(b.svc.Aggregates, b.svc.Estimator, b.opts.Metrics)
		if err != nil {
			return eris.Wrap(err, "app: prediction service")
		}
		b.svc.Predictions = preds
		b.svc.Batch = prediction.NewOrchestrator(preds, b.cfg.Batch.MaxConcurrency, b.opts.Metrics)
	}

	if b.opts.SkipProfiles {
		return nil
	}
	return b.record(ComponentProfiles, b.loadProfiles(ctx))
}

func (b *bootstrap) loadAggregates(ctx context.Context) error {
	var rows []model.MonthlyAggregate
	if path := b.cfg.Data.IncidentsPath; path != "" {
		records, err := store.ReadIncidents(ctx, path)
		if err != nil {
			return err
		}
		rows = aggregate.Aggregate(records, aggregate.NewCrimeFilter(b.cfg.Data.CrimeKeywords...))
		zap.L().Info("aggregated raw incidents",
			zap.String("path", path),
			zap.Int("incidents", len(records)),
			zap.Int("aggregates", len(rows)),
		)
	} else {
		if b.svc.source == nil {
			return b.svc.Components[ComponentSource]
		}
		var err error
		rows, err = resilience.Retry(ctx, b.backoff, "load aggregates", b.svc.source.LoadAggregates)
		if err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return eris.New("app: no monthly aggregates")
	}
	tbl, err := aggregate.NewTable(rows)
	if err != nil {
		return err
	}
	b.svc.Aggregates = tbl
	return nil
}

func (b *bootstrap) loadEstimator() error {
	mc := b.cfg.Model
	switch mc.Kind {
	case "linear", "":
		est, err := estimator.LoadLinear(mc.ArtifactPath)
		if err != nil {
			return err
		}
		b.svc.Estimator = est
	case "http":
		est, err := estimator.NewHTTP(estimator.HTTPOptions{
			BaseURL:    mc.URL,
			Timeout:    time.Duration(mc.TimeoutSecs) * time.Second,
			RatePerSec: mc.RatePerSec,
			Burst:      mc.Burst,
			Breaker: resilience.BreakerConfig{
				Failures: mc.BreakerFailures,
				Cooldown: time.Duration(mc.BreakerResetSecs) * time.Second,
				OnChange: b.opts.Metrics.BreakerChanged,
			},
		})
		if err != nil {
			return err
		}
		b.svc.Estimator = est
	default:
		return eris.Errorf("app: unknown model kind %q", mc.Kind)
	}
	zap.L().Info("estimator loaded", zap.String("estimator", b.svc.Estimator.Name()))
	return nil
}

func (b *bootstrap) loadClusterModel() error {
	cm, err := estimator.LoadCentroid(b.cfg.Cluster.ModelPath)
	if err != nil {
		return err
	}
	b.svc.ClusterModel = cm
	zap.L().Info("cluster model loaded", zap.String("model", cm.Name()), zap.Int("clusters", cm.Clusters()))
	return nil
}

// loadProfiles requires a loaded aggregate table.
func (b *bootstrap) loadProfiles(ctx context.Context) error {
	if err := b.svc.Components[ComponentAggregates]; err != nil {
		return &model.ResourceUnavailableError{Resource: "monthly aggregates", Err: err}
	}
	src := b.svc.source
	if src == nil {
		return b.svc.Components[ComponentSource]
	}
	rows, err := resilience.Retry(ctx, b.backoff, "load profile rows", src.LoadProfileRows)
	if err != nil {
		return err
	}
	stats, err := resilience.Retry(ctx, b.backoff, "load cluster stats", src.LoadClusterStats)
	if err != nil {
		return err
	}
	svc, err := profile.NewService(ctx, rows, stats, b.svc.Aggregates, b.svc.ClusterModel)
	if err != nil {
		return err
	}
	b.svc.Profiles = svc
	return nil
}
