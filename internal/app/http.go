package app

import (
	"gorm.io/gorm"

	"github.com/fieldcare/fieldcare-backend/internal/http"
	httpH "github.com/fieldcare/fieldcare-backend/internal/http/handlers"
	httpMW "github.com/fieldcare/fieldcare-backend/internal/http/middleware"
	"github.com/fieldcare/fieldcare-backend/internal/observability"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Request   *httpH.RequestHandler
	Treatment *httpH.TreatmentHandler
	NDVI      *httpH.NDVIHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Request:   httpH.NewRequestHandler(log, services.Workflow),
		Treatment: httpH.NewTreatmentHandler(log, services.Workflow),
		NDVI:      httpH.NewNDVIHandler(log, services.Measurement),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		RequestHandler:   handlers.Request,
		TreatmentHandler: handlers.Treatment,
		NDVIHandler:      handlers.NDVI,
	})
}
