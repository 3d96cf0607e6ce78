package handlers

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/metrics"
	"github.com/dzoniops/rental-service/services"
)

type Options struct {
	Accounts    *services.AccountService
	Bookings    *services.BookingService
	Properties  *services.PropertyService
	Resolver    *auth.Resolver
	Logger      log.Logger
	Metrics     *metrics.Metrics
	Limiter     *RateLimiter
	UploadDir   string
	MaxUpload   int64
	CORSOrigins []string
}

type Server struct {
	accounts    *services.AccountService
	bookings    *services.BookingService
	properties  *services.PropertyService
	resolver    *auth.Resolver
	logger      log.Logger
	metrics     *metrics.Metrics
	limiter     *RateLimiter
	uploadDir   string
	maxUpload   int64
	corsOrigins []string
}

func NewServer(o Options) *Server {
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
	if o.MaxUpload <= 0 {
		o.MaxUpload = 32 << 20
	}
	return &Server{
		accounts:    o.Accounts,
		bookings:    o.Bookings,
		properties:  o.Properties,
		resolver:    o.Resolver,
		logger:      o.Logger,
		metrics:     o.Metrics,
		limiter:     o.Limiter,
		uploadDir:   o.UploadDir,
		maxUpload:   o.MaxUpload,
		corsOrigins: o.CORSOrigins,
	}
}

func (s *Server) Routes() http.Handler {
	router := httprouter.New()
	router.PanicHandler = s.recoverPanic
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})

	router.GET("/health", s.instrument("/health", health))

	router.POST("/api/auth/register", s.instrument("/api/auth/register", s.limiter.Limit(s.register)))
	router.POST("/api/auth/login", s.instrument("/api/auth/login", s.limiter.Limit(s.login)))
	router.GET("/api/auth/me", s.instrument("/api/auth/me", s.authenticate(s.me)))

	router.GET("/api/properties", s.instrument("/api/properties", s.listProperties))
	router.POST("/api/properties", s.instrument("/api/properties", s.authenticate(s.createProperty)))
	router.GET("/api/properties/:id", s.instrument("/api/properties/:id", s.getProperty))
	router.PUT("/api/properties/:id", s.instrument("/api/properties/:id", s.authenticate(s.updateProperty)))
	router.DELETE("/api/properties/:id", s.instrument("/api/properties/:id", s.authenticate(s.deleteProperty)))

	router.GET("/api/booking", s.instrument("/api/booking", s.authenticate(s.listBookings)))
	router.POST("/api/booking", s.instrument("/api/booking", s.authenticate(s.createBooking)))
	router.PATCH("/api/booking", s.instrument("/api/booking", s.authenticate(s.transitionBooking)))

	router.POST("/api/upload", s.instrument("/api/upload", s.authenticate(s.upload)))

	if s.uploadDir != "" {
		router.ServeFiles("/uploads/*filepath", http.Dir(s.uploadDir))
	}

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)
}

func health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
