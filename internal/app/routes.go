package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/config"
	"github.com/tigertalks/tigertalks-go/internal/ctxutil"
	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
	"github.com/tigertalks/tigertalks-go/internal/sentry"
)

// buildRouter assembles the gin engine, middleware chain, and routes.
func (a *Application) buildRouter() *gin.Engine {
	registerValidations()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)
	router.HEAD("/ready", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(a.rateLimitMiddleware())
	{
		chats := api.Group("/chat")
		chats.POST("/create-chat", a.createChat)
		chats.GET("/get-chat", a.getChat)
		chats.GET("/list-chats", a.listChats)
		chats.DELETE("/delete-chat", a.deleteChat)
		chats.POST("/send-message", a.sendMessage)

		api.POST("/recommendations/courses", a.recommendCourses)
		api.GET("/courses/search", a.searchCourses)
	}

	return router
}

// registerValidations adds custom rules to gin's validator engine.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Course counts beyond the prompt sample size produce degenerate output.
	_ = v.RegisterValidation("rec_count", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= 20
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"version": version(),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := a.db.Ready(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}
	if err := a.catalog.Ready(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: catalog unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "catalog unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"features": gin.H{
			"vector_search":   a.vectorIndex.Ready(),
			"gemini_fallback": a.cfg.HasGeminiFallback(),
		},
	})
}

type createChatRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Title  string `json:"title" binding:"max=200"`
}

func (a *Application) createChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := ctxutil.WithUserID(c.Request.Context(), req.UserID)
	chat, err := a.chats.CreateChat(ctx, req.UserID, req.Title)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (a *Application) getChat(c *gin.Context) {
	chatID := c.Query("chatId")
	userID := c.Query("userId")
	if chatID == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields: 'chatId' and 'userId'"})
		return
	}

	ctx := ctxutil.WithChatID(ctxutil.WithUserID(c.Request.Context(), userID), chatID)
	conv, err := a.chats.GetChat(ctx, chatID, userID)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (a *Application) listChats(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: 'userId'"})
		return
	}

	chats, err := a.chats.ListChats(ctxutil.WithUserID(c.Request.Context(), userID), userID)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type deleteChatRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

func (a *Application) deleteChat(c *gin.Context) {
	var req deleteChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := ctxutil.WithChatID(ctxutil.WithUserID(c.Request.Context(), req.UserID), req.ChatID)
	if err := a.chats.DeleteChat(ctx, req.ChatID, req.UserID); err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_chat_id": req.ChatID})
}

type sendMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required,max=4000"`
}

func (a *Application) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := ctxutil.WithChatID(ctxutil.WithUserID(c.Request.Context(), req.UserID), req.ChatID)
	ctx, cancel := contextWithLLMBudget(ctx, a.cfg)
	defer cancel()

	reply, err := a.chats.SendMessage(ctx, req.ChatID, req.UserID, req.Message)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"model_message": reply})
}

type recommendRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Query  string `json:"query" binding:"max=4000"`
	Count  int    `json:"count" binding:"omitempty,rec_count"`
}

func (a *Application) recommendCourses(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := ctxutil.WithUserID(c.Request.Context(), req.UserID)
	ctx, cancel := contextWithLLMBudget(ctx, a.cfg)
	defer cancel()

	rec, err := a.advisor.Recommend(ctx, req.UserID, req.Query)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type searchResult struct {
	Course     catalog.CourseDetails `json:"course"`
	Similarity float64               `json:"similarity"`
}

// searchCourses runs hybrid keyword and vector search over the catalog.
func (a *Application) searchCourses(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: 'q'"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'limit' must be between 1 and 50"})
			return
		}
		limit = n
	}

	if !a.search.IsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not available"})
		return
	}

	matches, err := a.search.Search(c.Request.Context(), query, limit)
	if err != nil {
		a.renderError(c, err)
		return
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		details, err := a.catalog.Details(c.Request.Context(), m.Code)
		if err != nil {
			continue
		}
		results = append(results, searchResult{Course: details, Similarity: m.Similarity})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// renderError maps domain errors onto HTTP status codes. Dependency and
// unexpected failures are captured for error tracking; client errors are not.
func (a *Application) renderError(c *gin.Context, err error) {
	route := c.FullPath()

	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		a.metrics.RecordHTTPError("validation", route)
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case apperrors.IsNotFound(err):
		a.metrics.RecordHTTPError("not_found", route)
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case apperrors.IsInvalidInput(err):
		a.metrics.RecordHTTPError("invalid_input", route)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsDependency(err):
		a.metrics.RecordHTTPError("dependency", route)
		a.logger.WithError(err).WithField("route", route).Error("Upstream provider failed")
		sentry.CaptureExceptionWithContext(c.Request.Context(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	default:
		a.metrics.RecordHTTPError("internal", route)
		a.logger.WithError(err).WithField("route", route).Error("Request failed")
		sentry.CaptureExceptionWithContext(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// contextWithLLMBudget bounds a request by the worst-case pipeline latency:
// a classification call plus a generation call, each retried.
func contextWithLLMBudget(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 3*cfg.LLMTimeout)
}
