package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/adapters/backendapi"
	"github.com/kaushikharsh99/MARK-2/internal/auth"
	"github.com/kaushikharsh99/MARK-2/internal/notify"
	"github.com/kaushikharsh99/MARK-2/internal/settings"
	"github.com/kaushikharsh99/MARK-2/internal/telemetry"
	"github.com/kaushikharsh99/MARK-2/internal/transport"
	"github.com/kaushikharsh99/MARK-2/usecase"
)

// BackendProxy is the subset of backend actions the API forwards verbatim.
type BackendProxy interface {
	InstallProvider(ctx context.Context, provider, password string) (backendapi.ActionResult, error)
	DownloadModel(ctx context.Context, provider, modelName, url string) (backendapi.ActionResult, error)
}

// StatusSource reports the chat channel's connection status.
type StatusSource interface {
	Status() transport.Status
}

// Server wires the local control API over the conversation coordinator and
// its supporting services.
type Server struct {
	coord    *usecase.Coordinator
	store    *settings.Store
	poller   *telemetry.Poller
	backend  BackendProxy
	notices  *notify.Ring
	channel  StatusSource
	tokens   *auth.TokenService
	secret   string
	logger   *zap.Logger
}

// NewServer creates a Server. secret may be empty, which disables
// authentication entirely.
func NewServer(
	coord *usecase.Coordinator,
	store *settings.Store,
	poller *telemetry.Poller,
	backend BackendProxy,
	notices *notify.Ring,
	channel StatusSource,
	secret string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		coord:   coord,
		store:   store,
		poller:  poller,
		backend: backend,
		notices: notices,
		channel: channel,
		secret:  secret,
		logger:  logger,
	}
	if secret != "" {
		s.tokens = auth.NewTokenService(secret)
	}
	return s
}

// InitRoutes registers all API routes.
func (s *Server) InitRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "mark2-client",
		})
	})

	e.POST("/api/v1/auth/token", s.issueToken)

	v1 := e.Group("/api/v1")
	if s.tokens != nil {
		v1.Use(s.requireToken)
	}

	v1.GET("/status", s.getStatus)
	v1.GET("/notices", s.getNotices)
	v1.GET("/telemetry", s.getTelemetry)

	v1.GET("/conversations", s.listConversations)
	v1.POST("/conversations", s.createConversation)
	v1.POST("/conversations/:id/select", s.selectConversation)
	v1.DELETE("/conversations/:id", s.deleteConversation)
	v1.PUT("/conversations/:id/title", s.renameConversation)
	v1.POST("/conversations/:id/pin", s.pinConversation)
	v1.GET("/conversations/:id/export", s.exportConversation)

	v1.POST("/messages", s.sendMessage)
	v1.DELETE("/messages/:id", s.deleteMessage)
	v1.POST("/messages/:id/regenerate", s.regenerateMessage)
	v1.POST("/chat/clear", s.clearChat)
	v1.POST("/chat/stop", s.stopGenerating)
	v1.POST("/mic", s.toggleMic)

	v1.POST("/model/load", s.loadModel)
	v1.POST("/providers/install", s.installProvider)
	v1.POST("/marketplace/download", s.downloadModel)

	v1.GET("/settings", s.getSettings)
	v1.PUT("/settings/:panel", s.updateSettings)
}

func (s *Server) issueToken(c echo.Context) error {
	if s.tokens == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Authentication is not configured",
		})
	}

	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Secret != s.secret {
		s.logger.Warn("Token request rejected: wrong secret")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid secret",
		})
	}
	if req.ClientID == "" {
		req.ClientID = "local"
	}

	token, err := s.tokens.GenerateToken(req.ClientID)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate token",
		})
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token := ""
		if strings.HasPrefix(header, "Bearer ") {
			token = header[len("Bearer "):]
		}
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "Bearer token is required",
			})
		}
		if _, err := s.tokens.ValidateToken(token); err != nil {
			s.logger.Warn("Request rejected: invalid token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired token",
			})
		}
		return next(c)
	}
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:     string(s.channel.Status()),
		Generating: s.coord.Generating(),
		MicOpen:    s.coord.MicOpen(),
	})
}

func (s *Server) getNotices(c echo.Context) error {
	return c.JSON(http.StatusOK, s.notices.Recent())
}

func (s *Server) getTelemetry(c echo.Context) error {
	return c.JSON(http.StatusOK, s.poller.Snapshot())
}

func (s *Server) listConversations(c echo.Context) error {
	return c.JSON(http.StatusOK, s.coord.Conversations())
}

func (s *Server) createConversation(c echo.Context) error {
	conv := s.coord.NewConversation()
	return c.JSON(http.StatusCreated, conv)
}

func (s *Server) selectConversation(c echo.Context) error {
	if !s.coord.SelectConversation(c.Param("id")) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown conversation",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteConversation(c echo.Context) error {
	s.coord.DeleteConversation(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) renameConversation(c echo.Context) error {
	var req RenameRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Title is required",
		})
	}
	s.coord.RenameConversation(c.Param("id"), req.Title)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) pinConversation(c echo.Context) error {
	s.coord.TogglePin(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) exportConversation(c echo.Context) error {
	doc, ok := s.coord.Export(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown conversation",
		})
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc))
}

func (s *Server) sendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if !s.coord.Send(req.Text, req.SpeakResponse, req.Attachments...) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "send_rejected",
			Message: "Message was empty, a reply is already in flight, or the backend is unreachable",
		})
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) deleteMessage(c echo.Context) error {
	s.coord.DeleteMessage(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) regenerateMessage(c echo.Context) error {
	s.coord.Regenerate(c.Param("id"))
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) clearChat(c echo.Context) error {
	s.coord.ClearChat(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) stopGenerating(c echo.Context) error {
	s.coord.StopGenerating()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) toggleMic(c echo.Context) error {
	var req MicRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	s.coord.SetMicOpen(req.Open)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) loadModel(c echo.Context) error {
	if err := s.coord.LoadModel(c.Request().Context()); err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "model_load_failed",
			Message: err.Error(),
		})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) installProvider(c echo.Context) error {
	var req InstallRequest
	if err := c.Bind(&req); err != nil || req.Provider == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Provider is required",
		})
	}

	result, err := s.backend.InstallProvider(c.Request().Context(), req.Provider, req.Password)
	if err != nil {
		s.logger.Error("Provider install failed",
			zap.String("provider", req.Provider),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "install_failed",
			Message: err.Error(),
		})
	}
	s.poller.Poll(c.Request().Context())
	return c.JSON(http.StatusOK, result)
}

func (s *Server) downloadModel(c echo.Context) error {
	var req DownloadRequest
	if err := c.Bind(&req); err != nil || req.Provider == "" || req.ModelName == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Provider and model name are required",
		})
	}

	result, err := s.backend.DownloadModel(c.Request().Context(), req.Provider, req.ModelName, req.URL)
	if err != nil {
		s.logger.Error("Model download failed",
			zap.String("provider", req.Provider),
			zap.String("model", req.ModelName),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "download_failed",
			Message: err.Error(),
		})
	}
	s.poller.Poll(c.Request().Context())
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getSettings(c echo.Context) error {
	panels := s.store.Panels()
	out := make([]map[string]interface{}, 0, len(panels))
	for _, panel := range panels {
		values, _ := s.store.Values(panel.ID)
		out = append(out, map[string]interface{}{
			"id":     panel.ID,
			"title":  panel.Title,
			"fields": panel.Fields,
			"values": values,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) updateSettings(c echo.Context) error {
	var values map[string]interface{}
	if err := c.Bind(&values); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if !s.store.Replace(c.Param("panel"), values) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Unknown settings panel",
		})
	}
	return c.NoContent(http.StatusNoContent)
}
