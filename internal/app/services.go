package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fieldcare/fieldcare-backend/internal/data/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/modules/ndvi"
	"github.com/fieldcare/fieldcare-backend/internal/observability"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"github.com/fieldcare/fieldcare-backend/internal/services"
)

type Services struct {
	Pipeline    *ndvi.Pipeline
	Identity    services.IdentityService
	Auth        services.AuthService
	Measurement services.MeasurementService
	Workflow    services.WorkflowService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	srcCfg, err := ndvi.LoadSourcesConfig()
	if err != nil {
		return Services{}, fmt.Errorf("load ndvi sources: %w", err)
	}
	sources, err := ndvi.BuildSources(log, srcCfg)
	if err != nil {
		return Services{}, fmt.Errorf("build ndvi sources: %w", err)
	}
	var cache ndvi.Cache
	if clients.Cache != nil {
		cache = clients.Cache
	}
	pipeline := ndvi.NewPipeline(ndvi.PipelineDeps{
		Log:     log,
		Sources: sources,
		Cache:   cache,
		Metrics: metrics,
		Config:  ndvi.LoadPipelineConfig(),
	})
	log.Info("NDVI pipeline ready", "sources", pipeline.SourceNames())

	identity := services.NewIdentityService(log, reposet.Profile)
	auth, err := services.NewAuthService(log, identity, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}
	measurement := services.NewMeasurementService(log, reposet.Field, reposet.Reading, pipeline)

	agg := aggregates.NewTreatmentAggregate(aggregates.TreatmentAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:          db,
			Log:         log,
			Hooks:       aggregates.NewObservabilityHooks(metrics, log),
			MaxAttempts: cfg.AggregateMaxAttempts,
		},
		Fields:     reposet.Field,
		Requests:   reposet.Request,
		Treatments: reposet.Treatment,
	})
	workflow := services.NewWorkflowService(log, agg, reposet.Field, reposet.Request, reposet.Treatment, measurement)

	return Services{
		Pipeline:    pipeline,
		Identity:    identity,
		Auth:        auth,
		Measurement: measurement,
		Workflow:    workflow,
	}, nil
}
