package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/middleware/ratelimit"
	"reimburse/internal/middleware/security"
	"reimburse/internal/middleware/trace"
	"reimburse/internal/services"
)

// Services are the operations exposed by the API.
type Services struct {
	Expenses *services.ExpenseService
	Projects *services.ProjectService
	Claims   *services.ClaimService
	Payments *services.PaymentService
	Reports  *services.ReportService
}

// Options tune the server. The zero value is usable.
type Options struct {
	// DefaultUserID is the identity applied when a request has no X-User-ID
	// header; 0 leaves such requests anonymous.
	DefaultUserID int64
	RateLimit     ratelimit.Config
	// Ready backs /readyz; nil means always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	svc    Services
	opts   Options
	logger *log.Logger
	parser *RequestParser

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime        time.Time
	expenses      int64
	claimsCreated int64
	payments      int64
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:              svc,
		opts:             opts,
		logger:           logger,
		parser:           NewRequestParser(),
		traceMiddleware:  trace.NewMiddleware(),
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := http.NewServeMux()
	s.routes(api)
	mux.Handle("/api/", withIdentity(core.UserID(opts.DefaultUserID))(api))

	// Outermost first.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onRateLimit)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/orphans", s.handleListOrphans)
	mux.HandleFunc("POST /api/expenses/assign-project", s.handleAssignProject)
	mux.HandleFunc("POST /api/expenses/import", s.handleImportExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/expenses/{id}/claim", s.handleExpenseClaim)

	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)

	mux.HandleFunc("POST /api/claims", s.handleCreateClaim)
	mux.HandleFunc("GET /api/claims", s.handleListClaims)
	mux.HandleFunc("GET /api/claims/editable", s.handleListEditableClaims)
	mux.HandleFunc("GET /api/claims/{id}", s.handleGetClaim)
	mux.HandleFunc("PATCH /api/claims/{id}", s.handleUpdateClaimMetadata)
	mux.HandleFunc("DELETE /api/claims/{id}", s.handleDeleteClaim)
	mux.HandleFunc("POST /api/claims/{id}/items", s.handleAttachExpenses)
	mux.HandleFunc("DELETE /api/claims/{id}/items/{expenseID}", s.handleDetachExpense)
	mux.HandleFunc("POST /api/claims/{id}/submit", s.handleSubmitClaim)
	mux.HandleFunc("POST /api/claims/{id}/reject", s.handleRejectClaim)
	mux.HandleFunc("POST /api/claims/{id}/payments", s.handleRecordPayment)
	mux.HandleFunc("GET /api/claims/{id}/payments", s.handleListPayments)
	mux.HandleFunc("GET /api/claims/{id}/export", s.handleExportRows)

	mux.HandleFunc("GET /api/reports/projects", s.handleProjectStats)
	mux.HandleFunc("GET /api/reports/categories", s.handleCategoryStats)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().
			Status(http.StatusNotFound).
			Result(core.Result{Code: core.KindNotFound, Message: "no such endpoint"}).
			Write(w)
	})
}

func onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Result(core.Result{Code: "rate_limited", Message: "rate limit exceeded, retry later"}).
		Write(w)
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) count(metric *int64) {
	atomic.AddInt64(metric, 1)
}
