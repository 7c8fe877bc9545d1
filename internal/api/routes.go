package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/domain/repositories"
	"github.com/ihub-ai/character-server/internal/auth"
	"github.com/ihub-ai/character-server/internal/websocket"
	"github.com/ihub-ai/character-server/usecase"
)

const defaultHistoryLimit = 50

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Hub           *websocket.Hub
	Coordinator   *usecase.Coordinator
	Classifier    repositories.ExpressionClassifier
	Conversations repositories.ConversationRepository
	AudioCache    *audiocache.Store

	// Auth is nil when JWT_SECRET is unset; the admin surface is then
	// disabled rather than left open.
	Auth          *auth.Service
	AdminUsername string
	AdminPassword string

	Logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "character-server",
		})
	})

	// Synthesized audio artifacts
	e.GET("/audio/:filename", func(c echo.Context) error {
		return serveAudio(c, deps)
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/admin/auth", func(c echo.Context) error {
		return adminAuth(c, deps)
	})
	v1.GET("/admin/conversations", requireAdmin(deps, func(c echo.Context) error {
		return getConversations(c, deps)
	}))

	// WebSocket endpoints
	e.GET("/ws", func(c echo.Context) error {
		return websocket.ServeBroadcast(deps.Hub, c, deps.Logger)
	})
	e.GET("/ws-vad", func(c echo.Context) error {
		return websocket.ServeAudio(deps.Hub, deps.Coordinator, c, deps.Logger)
	})
	e.GET("/ws-video", func(c echo.Context) error {
		return websocket.ServeVideo(deps.Hub, deps.Classifier, c, deps.Logger)
	})
}

// serveAudio streams one cached artifact. References are opaque ids from
// ai_response events; anything else is rejected.
func serveAudio(c echo.Context, deps Dependencies) error {
	ref := c.Param("filename")

	path, contentType, err := deps.AudioCache.Resolve(ref)
	if err != nil {
		switch {
		case errors.Is(err, audiocache.ErrNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Audio artifact not found",
			})
		case errors.Is(err, audiocache.ErrOutsideRoot):
			deps.Logger.Warn("Rejected audio reference outside storage root",
				zap.String("ref", ref))
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Invalid audio reference",
			})
		default:
			deps.Logger.Error("Failed to resolve audio reference", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to resolve audio reference",
			})
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, contentType)
	return c.File(path)
}

// adminAuth exchanges admin credentials for a bearer token.
func adminAuth(c echo.Context, deps Dependencies) error {
	if deps.Auth == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "admin_disabled",
			Message: "Admin surface is not configured",
		})
	}

	var req AdminAuthRequest
	if err := c.Bind(&req); err != nil {
		deps.Logger.Error("Failed to bind admin auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Username and password are required",
		})
	}

	if req.Username != deps.AdminUsername || req.Password != deps.AdminPassword {
		deps.Logger.Warn("Admin authentication failed",
			zap.String("username", req.Username))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid credentials",
		})
	}

	token, err := deps.Auth.GenerateAdminToken(req.Username)
	if err != nil {
		deps.Logger.Error("Failed to generate admin token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, AdminAuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

// requireAdmin guards a handler behind bearer-token validation. With no
// auth service configured the guarded routes answer 503.
func requireAdmin(deps Dependencies, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if deps.Auth == nil {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "admin_disabled",
				Message: "Admin surface is not configured",
			})
		}

		var token string
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "Bearer token is required in Authorization header",
			})
		}

		claims, err := deps.Auth.ValidateToken(token)
		if err != nil {
			deps.Logger.Warn("Admin token rejected", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired token",
			})
		}
		if claims.Role != "admin" {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "invalid_role",
				Message: "Admin role required",
			})
		}

		return next(c)
	}
}

// getConversations returns the merged message and reply history, newest
// first.
func getConversations(c echo.Context, deps Dependencies) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	ctx := c.Request().Context()

	messages, err := deps.Conversations.RecentMessages(ctx, limit)
	if err != nil {
		deps.Logger.Error("Failed to load messages", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load conversation history",
		})
	}
	replies, err := deps.Conversations.RecentReplies(ctx, limit)
	if err != nil {
		deps.Logger.Error("Failed to load replies", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load conversation history",
		})
	}

	entries := mergeHistory(messages, replies, limit)
	return c.JSON(http.StatusOK, ConversationsResponse{
		Conversations: entries,
		Count:         len(entries),
	})
}

// mergeHistory interleaves the two record sets by timestamp, newest
// first, capped at limit.
func mergeHistory(messages []*entities.MessageRecord, replies []*entities.ReplyRecord, limit int) []ConversationEntry {
	entries := make([]ConversationEntry, 0, len(messages)+len(replies))
	for _, m := range messages {
		entries = append(entries, ConversationEntry{
			ID:         m.ID,
			Role:       string(m.Role),
			Text:       m.Text,
			Expression: m.Expression,
			AudioID:    m.AudioID,
			CreatedAt:  m.CreatedAt,
		})
	}
	for _, r := range replies {
		entries = append(entries, ConversationEntry{
			ID:        r.ID,
			Role:      string(entities.MessageRoleAssistant),
			Text:      r.Text,
			Timeline:  r.Timeline,
			AudioID:   r.AudioID,
			CreatedAt: r.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
