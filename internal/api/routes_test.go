package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/adapters/memory"
	"github.com/ihub-ai/character-server/domain/entities"
	"github.com/ihub-ai/character-server/internal/auth"
)

func testDependencies(t *testing.T) (Dependencies, *memory.ConversationRepository) {
	t.Helper()
	cache, err := audiocache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	store := memory.NewConversationRepository()
	return Dependencies{
		Conversations: store,
		AudioCache:    cache,
		AdminUsername: "admin",
		AdminPassword: "secret",
		Logger:        zap.NewNop(),
	}, store
}

func TestMergeHistoryOrdersNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := []*entities.MessageRecord{
		{ID: 1, Role: entities.MessageRoleUser, Text: "first", CreatedAt: base},
		{ID: 3, Role: entities.MessageRoleUser, Text: "second", CreatedAt: base.Add(2 * time.Second)},
	}
	replies := []*entities.ReplyRecord{
		{ID: 2, Text: "reply one", CreatedAt: base.Add(time.Second)},
		{ID: 4, Text: "reply two", CreatedAt: base.Add(3 * time.Second)},
	}

	entries := mergeHistory(messages, replies, 10)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	wantTexts := []string{"reply two", "second", "reply one", "first"}
	for i, want := range wantTexts {
		if entries[i].Text != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, entries[i].Text)
		}
	}
	if entries[0].Role != "assistant" {
		t.Errorf("expected assistant role, got %q", entries[0].Role)
	}
}

func TestMergeHistoryAppliesLimit(t *testing.T) {
	base := time.Now().UTC()
	var messages []*entities.MessageRecord
	for i := 0; i < 5; i++ {
		messages = append(messages, &entities.MessageRecord{
			ID:        int64(i + 1),
			Text:      "m",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	entries := mergeHistory(messages, nil, 3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestGetConversations(t *testing.T) {
	deps, store := testDependencies(t)

	ctx := context.Background()
	if err := store.SaveMessage(ctx, &entities.MessageRecord{Role: entities.MessageRoleUser, Text: "hello"}); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if err := store.SaveReply(ctx, &entities.ReplyRecord{Text: "hi!"}); err != nil {
		t.Fatalf("SaveReply failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/conversations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := getConversations(c, deps); err != nil {
		t.Fatalf("getConversations failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ConversationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 entries, got %d", resp.Count)
	}
}

func TestGetConversationsRejectsBadLimit(t *testing.T) {
	deps, _ := testDependencies(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/conversations?limit=zero", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := getConversations(c, deps); err != nil {
		t.Fatalf("getConversations failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAdminAuthRejectsBadCredentials(t *testing.T) {
	deps, _ := testDependencies(t)

	e := echo.New()
	body := strings.NewReader(`{"username":"admin","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := adminAuth(c, deps); err != nil {
		t.Fatalf("adminAuth failed: %v", err)
	}
	// Auth service unset means the whole surface is disabled.
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with no auth service, got %d", rec.Code)
	}
}

func TestRequireAdminWithoutToken(t *testing.T) {
	deps, _ := testDependencies(t)
	t.Setenv("JWT_SECRET", "test-secret")
	svc, err := auth.NewServiceFromEnv()
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	deps.Auth = svc

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/conversations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := requireAdmin(deps, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestRequireAdminAcceptsValidToken(t *testing.T) {
	deps, _ := testDependencies(t)
	t.Setenv("JWT_SECRET", "test-secret")
	svc, err := auth.NewServiceFromEnv()
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	deps.Auth = svc

	token, err := svc.GenerateAdminToken("admin")
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := requireAdmin(deps, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestServeAudioNotFound(t *testing.T) {
	deps, _ := testDependencies(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/audio/missing.mp3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("filename")
	c.SetParamValues("missing.mp3")

	if err := serveAudio(c, deps); err != nil {
		t.Fatalf("serveAudio failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServeAudioDelivery(t *testing.T) {
	deps, _ := testDependencies(t)

	id, err := deps.AudioCache.Put([]byte("fake mp3 bytes"), ".mp3")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/audio/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("filename")
	c.SetParamValues(id)

	if err := serveAudio(c, deps); err != nil {
		t.Fatalf("serveAudio failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "fake mp3 bytes" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}
