package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/changedesk"
	"goflare.io/changedesk/internal/change"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/risk"
	"goflare.io/changedesk/internal/search"
	"goflare.io/changedesk/internal/settings"
)

// Index is the body of GET /.
const Index = "Change Request Form App"

// Desk is what the HTTP boundary drives.
type Desk interface {
	Start(ctx context.Context) error
	Search(ctx context.Context, kind search.Kind, query string) ([]search.Result, error)
	Assess(answers []risk.Answer) changedesk.Assessment
	Preview(form *change.Form, answers []risk.Answer) (*change.Preview, error)
	Submit(ctx context.Context, form *change.Form, answers []risk.Answer) (*change.Result, error)
	ValidateSettings(s settings.Settings) settings.Report
	CacheStats() models.CacheStats
	ClearSearchCache() bool
	BreakerState() gobreaker.State
	Registry() *prometheus.Registry
	OnInstall(ctx context.Context) error
	OnUninstall(ctx context.Context)
}

// AssessmentRequest carries questionnaire answers keyed by question.
type AssessmentRequest struct {
	Answers map[string]string `json:"answers"`
}

// ChangeRequest is the form state sent by the browser.
type ChangeRequest struct {
	Fields    map[string]string `json:"fields" binding:"required"`
	Selected  []int64           `json:"selected"`
	Answers   map[string]string `json:"answers"`
	Confirmed bool              `json:"confirmed"`
}

func (r ChangeRequest) form() *change.Form {
	f := change.NewForm(r.Fields)
	for _, id := range r.Selected {
		f.Select(id)
	}
	return f
}

// Handler serves the change desk over HTTP.
type Handler struct {
	desk   Desk
	logger *zap.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(desk Desk, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{desk: desk, logger: logger}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Index)
	r.POST("/settings/validate", h.ValidateSettings)
	r.GET("/search/:kind", h.Search)
	r.POST("/assessment", h.Assess)
	r.POST("/changes/preview", h.Preview)
	r.POST("/changes", h.Submit)
	r.GET("/cache/stats", h.CacheStats)
	r.DELETE("/cache", h.ClearCache)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.desk.Registry(), promhttp.HandlerOpts{})))

	lifecycle := r.Group("/lifecycle")
	{
		lifecycle.POST("/start", h.Start)
		lifecycle.POST("/install", h.Install)
		lifecycle.POST("/uninstall", h.Uninstall)
	}
}

// Index endpoint
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, Index)
}

// ValidateSettings endpoint
func (h *Handler) ValidateSettings(c *gin.Context) {
	var s settings.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid settings data", err)
		return
	}
	report := h.desk.ValidateSettings(s)
	if !report.OK() {
		h.respond(c, http.StatusUnprocessableEntity, report)
		return
	}
	h.respond(c, http.StatusOK, report)
}

// Search endpoint
func (h *Handler) Search(c *gin.Context) {
	kind, err := search.ParseKind(c.Param("kind"))
	if err != nil {
		h.fail(c, http.StatusBadRequest, models.UserMessage(err), err)
		return
	}
	results, err := h.desk.Search(c.Request.Context(), kind, c.Query("q"))
	if errors.Is(err, models.ErrStaleResult) {
		h.respond(c, http.StatusConflict, gin.H{"stale": true})
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	h.respond(c, http.StatusOK, gin.H{"results": results})
}

// Assess endpoint
func (h *Handler) Assess(c *gin.Context) {
	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid assessment data", err)
		return
	}
	answers, err := risk.ParseAnswers(req.Answers)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	h.respond(c, http.StatusOK, h.desk.Assess(answers))
}

// Preview endpoint
func (h *Handler) Preview(c *gin.Context) {
	req, answers, ok := h.bindChange(c)
	if !ok {
		return
	}
	preview, err := h.desk.Preview(req.form(), answers)
	if err != nil {
		h.fail(c, statusFor(err), models.UserMessage(err), err)
		return
	}
	h.respond(c, http.StatusOK, preview)
}

// Submit endpoint
func (h *Handler) Submit(c *gin.Context) {
	req, answers, ok := h.bindChange(c)
	if !ok {
		return
	}
	sessionOf(c).SetConfirm(req.Confirmed)

	res, err := h.desk.Submit(c.Request.Context(), req.form(), answers)
	if err != nil {
		message := change.FailureMessage(err)
		if res != nil && res.Outcome == change.Rejected {
			message = models.UserMessage(err)
		}
		h.fail(c, statusFor(err), message, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == change.Created {
		status = http.StatusCreated
	}
	h.respond(c, status, res)
}

// CacheStats endpoint
func (h *Handler) CacheStats(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{
		"cache":   h.desk.CacheStats(),
		"breaker": h.desk.BreakerState().String(),
	})
}

// ClearCache endpoint
func (h *Handler) ClearCache(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{"cleared": h.desk.ClearSearchCache()})
}

// Start endpoint
func (h *Handler) Start(c *gin.Context) {
	if err := h.desk.Start(c.Request.Context()); err != nil {
		h.fail(c, statusFor(err), models.UserMessage(err), err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"started": true})
}

// Install endpoint
func (h *Handler) Install(c *gin.Context) {
	if err := h.desk.OnInstall(c.Request.Context()); err != nil {
		h.fail(c, http.StatusUnprocessableEntity, models.UserMessage(err), err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"installed": true})
}

// Uninstall endpoint
func (h *Handler) Uninstall(c *gin.Context) {
	h.desk.OnUninstall(c.Request.Context())
	h.respond(c, http.StatusOK, gin.H{"uninstalled": true})
}

func (h *Handler) bindChange(c *gin.Context) (ChangeRequest, []risk.Answer, bool) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid change request data", err)
		return req, nil, false
	}
	answers, err := risk.ParseAnswers(req.Answers)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error(), err)
		return req, nil, false
	}
	return req, answers, true
}

// respond writes data together with the notifications raised while serving c.
func (h *Handler) respond(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{
		"data":          data,
		"notifications": sessionOf(c).Notifications(),
	})
}

func (h *Handler) fail(c *gin.Context, code int, message string, err error) {
	h.logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	_ = c.Error(err)
	c.JSON(code, gin.H{
		"error":         message,
		"notifications": sessionOf(c).Notifications(),
	})
}

func statusFor(err error) int {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, search.ErrAuthFailed), models.IsAuth(err):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
