package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/intisalud/hospital-api/internal/handler"
	admissionHandler "github.com/intisalud/hospital-api/internal/handler/admission"
	auditHandler "github.com/intisalud/hospital-api/internal/handler/audit"
	bedHandler "github.com/intisalud/hospital-api/internal/handler/bed"
	catalogHandler "github.com/intisalud/hospital-api/internal/handler/catalog"
	documentHandler "github.com/intisalud/hospital-api/internal/handler/document"
	reportHandler "github.com/intisalud/hospital-api/internal/handler/report"
	staffHandler "github.com/intisalud/hospital-api/internal/handler/staff"
	"github.com/intisalud/hospital-api/internal/middleware"
	"github.com/intisalud/hospital-api/internal/model"
)

type Router struct {
	engine     *gin.Engine
	auth       *middleware.AuthMiddleware
	bedH       *bedHandler.Handler
	admissionH *admissionHandler.Handler
	documentH  *documentHandler.Handler
	reportH    *reportHandler.Handler
	staffH     *staffHandler.Handler
	catalogH   *catalogHandler.Handler
	auditH     *auditHandler.Handler
	h          *handler.Handler
	metrics    *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimit     rate.Limit
	RateBurst     int
	Timeout       time.Duration
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	bedH *bedHandler.Handler,
	admissionH *admissionHandler.Handler,
	documentH *documentHandler.Handler,
	reportH *reportHandler.Handler,
	staffH *staffHandler.Handler,
	catalogH *catalogHandler.Handler,
	auditH *auditHandler.Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	model.RegisterValidations()

	engine := gin.New()

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	r := &Router{
		engine:     engine,
		auth:       auth,
		bedH:       bedH,
		admissionH: admissionH,
		documentH:  documentH,
		reportH:    reportH,
		staffH:     staffH,
		catalogH:   catalogH,
		auditH:     auditH,
		h:          h,
		metrics:    initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))
	engine.Use(
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.Compress(middleware.DefaultCompressConfig()),
		middleware.BodyLimit(middleware.DefaultBodyLimitConfig()),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.h.MetricsHandler)

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	// Everything below requires a bearer token.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	adminOnly := r.auth.RequireRole(model.StaffRoleAdmin)

	r.bedH.RegisterRoutes(rg, adminOnly)
	r.admissionH.RegisterRoutes(rg)
	r.documentH.RegisterRoutes(rg)
	r.reportH.RegisterRoutes(rg)
	r.staffH.RegisterRoutes(rg, adminOnly)

	// Catalog responses are reference data, safe to cache on the terminal.
	r.catalogH.RegisterRoutes(rg.Group("", middleware.CacheControl(10*time.Minute)))

	admin := rg.Group("", adminOnly)
	r.auditH.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
