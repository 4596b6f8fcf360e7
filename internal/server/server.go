package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/rezonia/facture-ocr/internal/model"
)

const (
	HeaderProxySecret = "X-RapidAPI-Proxy-Secret"
	HeaderRequestID   = "X-Request-ID"
	APIVersion        = "1.0.0"

	defaultMaxRecorded = 1000
	defaultCacheSize   = 10000
)

// Config holds server configuration
type Config struct {
	Address      string
	ProxySecret  string // empty disables authentication
	Plan         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	Logger       *zap.Logger

	// Sample is the invoice every OCR request "extracts".
	Sample *model.InvoiceData

	// MaxRecorded bounds the requests kept for Requests, oldest dropped
	// first. Zero uses the default, negative disables recording.
	MaxRecorded int

	// CacheSize bounds the documents remembered for the cached flag.
	// Zero uses the default.
	CacheSize int
}

// Server is a local stand-in for the invoice OCR API. It honours the same
// routes, auth header and error shapes, with canned extraction results.
type Server struct {
	config *Config
	router *gin.Engine
	logger *zap.Logger
	quota  *quotaTracker
	sample *model.InvoiceData
	now    func() time.Time

	mu       sync.Mutex
	failures map[string]*Failure
	requests []RecordedRequest
	seen     *lru.Cache[string, struct{}]
}

// NewServer creates a new stub API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sample := config.Sample
	if sample == nil {
		sample = defaultSample()
	}

	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	// only fails for a non-positive size
	seen, _ := lru.New[string, struct{}](cacheSize)

	s := &Server{
		config:   config,
		router:   gin.New(),
		logger:   logger,
		sample:   sample,
		now:      time.Now,
		failures: make(map[string]*Failure),
		seen:     seen,
	}
	s.quota = newQuotaTracker(config.Plan, s.now)

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestID())
	if config.MaxRecorded >= 0 {
		s.router.Use(s.record())
	}
	if config.Debug {
		s.router.Use(s.accessLog())
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/")
	api.Use(s.auth(), s.scripted(), s.rateLimit())
	{
		api.GET("/v1/languages", s.handleLanguages)
		api.GET("/v1/quota", s.handleQuota)

		api.POST("/v1/ocr/upload", s.handleUpload)
		api.POST("/v1/ocr/base64", s.handleBase64)
		api.POST("/v1/ocr/batch", s.handleBatch)

		api.POST("/v1/compliance/check", s.handleComplianceCheck)
		api.POST("/compliance/validate-vat", s.handleValidateVAT)
		api.POST("/compliance/enrich-siret", s.handleEnrichSiret)
		api.POST("/compliance/validate-vies", s.handleValidateVIES)

		api.POST("/facturx/generate", s.handleFacturXGenerate)
		api.POST("/facturx/parse", s.handleFacturXParse)
		api.POST("/facturx/validate", s.handleFacturXValidate)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("stub api listening",
		zap.String("address", s.config.Address),
		zap.Bool("auth", s.config.ProxySecret != ""),
	)
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Fail makes requests to path return f until cleared or f.Times is used up.
func (s *Server) Fail(path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &f
}

// ClearFailures removes every scripted failure
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]*Failure)
}

// Requests returns a copy of the most recent requests, oldest first
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// SetQuotaLimit overrides the monthly quota of the configured plan
func (s *Server) SetQuotaLimit(monthly int) {
	s.quota.setMonthly(monthly)
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := s.config.MaxRecorded
		if limit == 0 {
			limit = defaultMaxRecorded
		}

		s.mu.Lock()
		if len(s.requests) >= limit {
			n := copy(s.requests, s.requests[len(s.requests)-limit+1:])
			s.requests = s.requests[:n]
		}
		s.requests = append(s.requests, RecordedRequest{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Header:    c.Request.Header.Clone(),
			RequestID: c.GetString(HeaderRequestID),
		})
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(HeaderRequestID)),
		)
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.ProxySecret == "" {
			c.Next()
			return
		}
		if c.GetHeader(HeaderProxySecret) != s.config.ProxySecret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or missing X-RapidAPI-Proxy-Secret header",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) scripted() gin.HandlerFunc {
	return func(c *gin.Context) {
		f := s.takeFailure(c.Request.URL.Path)
		if f == nil {
			c.Next()
			return
		}

		if f.Delay > 0 {
			t := time.NewTimer(f.Delay)
			select {
			case <-c.Request.Context().Done():
				t.Stop()
				c.Abort()
				return
			case <-t.C:
			}
		}

		for k, v := range f.Header {
			c.Header(k, v)
		}
		switch body := f.Body.(type) {
		case nil:
			c.AbortWithStatus(f.Status)
		case string:
			c.Data(f.Status, "application/json", []byte(body))
			c.Abort()
		case []byte:
			c.Data(f.Status, "application/json", body)
			c.Abort()
		default:
			c.AbortWithStatusJSON(f.Status, body)
		}
	}
}

func (s *Server) takeFailure(path string) *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failures[path]
	if !ok {
		return nil
	}
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.failures, path)
		}
	}
	out := *f
	return &out
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "OCR Facture API (stub)",
		"version": APIVersion,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, model.Health{
		Status:     "healthy",
		APIVersion: model.Ptr(APIVersion),
		DebugMode:  model.Ptr(s.config.Debug),
	})
}

func (s *Server) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, model.Languages{
		Languages: []model.LanguageInfo{
			{Code: "fra", Name: "Français"},
			{Code: "eng", Name: "English"},
			{Code: "deu", Name: "Deutsch"},
			{Code: "spa", Name: "Español"},
			{Code: "ita", Name: "Italiano"},
			{Code: "por", Name: "Português"},
		},
	})
}

func (s *Server) handleQuota(c *gin.Context) {
	c.JSON(http.StatusOK, s.quota.snapshot(c.GetHeader(HeaderProxySecret)))
}
