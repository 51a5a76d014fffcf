package http

import (
	"math"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	httpH "github.com/fieldcare/fieldcare-backend/internal/http/handlers"
	httpMW "github.com/fieldcare/fieldcare-backend/internal/http/middleware"
	"github.com/fieldcare/fieldcare-backend/internal/observability"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	RequestHandler   *httpH.RequestHandler
	TreatmentHandler *httpH.TreatmentHandler
	NDVIHandler      *httpH.NDVIHandler
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ndvi", validateIndex)
	}
}

// validateIndex accepts vegetation index values in [-1, 1].
func validateIndex(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && v >= -1 && v <= 1
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	farmer := httpMW.RequireCapability(auth.CapabilityFarmer)
	agronomist := httpMW.RequireCapability(auth.CapabilityAgronomist)
	anyProfile := httpMW.RequireCapability(auth.CapabilityFarmer, auth.CapabilityAgronomist)

	// Treatment requests
	if h := cfg.RequestHandler; h != nil {
		protected.POST("/requests", agronomist, h.Create)
		protected.GET("/requests", anyProfile, h.List)
		protected.GET("/requests/:id", anyProfile, h.Get)
		protected.POST("/requests/:id/accept", farmer, h.Accept)
		protected.POST("/requests/:id/reject", farmer, h.Reject)
		protected.DELETE("/requests/:id", anyProfile, h.Delete)
	}

	// Treatments
	if h := cfg.TreatmentHandler; h != nil {
		protected.GET("/treatments", anyProfile, h.List)
		protected.GET("/treatments/:id", anyProfile, h.Get)
		protected.PUT("/treatments/:id/schedule", agronomist, h.Schedule)
		protected.PUT("/treatments/:id/start", agronomist, h.Start)
		protected.PUT("/treatments/:id/complete", agronomist, h.Complete)
		protected.PUT("/treatments/:id/verify", agronomist, h.Verify)
		protected.PUT("/treatments/:id/farmer-confirm", farmer, h.FarmerConfirm)
	}

	// NDVI
	if h := cfg.NDVIHandler; h != nil {
		protected.GET("/ndvi/field/:id", h.History)
		protected.POST("/ndvi/field/:id/fetch", anyProfile, h.Fetch)
		protected.POST("/ndvi/fetch", agronomist, h.FetchBatch)
		protected.GET("/ndvi/map", h.Map)
	}

	return r
}
