package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/adapters/audiocache"
	"github.com/ihub-ai/character-server/adapters/llm"
	"github.com/ihub-ai/character-server/adapters/memory"
	adaptermongo "github.com/ihub-ai/character-server/adapters/mongo"
	"github.com/ihub-ai/character-server/adapters/stt"
	"github.com/ihub-ai/character-server/adapters/tts"
	"github.com/ihub-ai/character-server/adapters/vision"
	"github.com/ihub-ai/character-server/domain/repositories"
	"github.com/ihub-ai/character-server/internal/api"
	"github.com/ihub-ai/character-server/internal/auth"
	"github.com/ihub-ai/character-server/internal/websocket"
	"github.com/ihub-ai/character-server/usecase"
)

func main() {
	// Load .env file if present; environment may be configured externally
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Audio artifact cache
	cacheRoot := os.Getenv("AUDIO_CACHE_DIR")
	if cacheRoot == "" {
		cacheRoot = "audio_cache"
	}
	cache, err := audiocache.NewStore(cacheRoot)
	if err != nil {
		logger.Fatal("Failed to initialize audio cache", zap.Error(err))
	}
	logger.Info("Audio cache ready", zap.String("dir", cache.Root()))

	// Initialize adapters, falling back to mocks when credentials are
	// not configured so the server stays runnable in development.
	generator := newReplyGenerator(logger)
	speechToText := newSpeechToText(logger)
	textToSpeech := newTextToSpeech(cache, logger)
	classifier := newClassifier(logger)
	conversations, mongoClient := newConversationRepository(logger)

	// Pipeline coordinator
	coordinator := usecase.NewCoordinator(speechToText, generator, textToSpeech, conversations, cache, logger)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Admin surface
	authService, err := auth.NewServiceFromEnv()
	if err != nil {
		logger.Warn("Admin surface disabled", zap.Error(err))
		authService = nil
	}

	api.InitRoutes(e, api.Dependencies{
		Hub:           hub,
		Coordinator:   coordinator,
		Classifier:    classifier,
		Conversations: conversations,
		AudioCache:    cache,
		Auth:          authService,
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Logger:        logger,
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if mongoClient != nil {
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func newReplyGenerator(logger *zap.Logger) repositories.ReplyGenerator {
	if os.Getenv("GEMINI_API_KEY") == "" {
		logger.Warn("GEMINI_API_KEY not set, using mock reply generator")
		return llm.NewMockReplyGenerator()
	}
	generator, err := llm.NewGeminiReplyGenerator(logger)
	if err != nil {
		logger.Warn("Failed to initialize Gemini, using mock reply generator", zap.Error(err))
		return llm.NewMockReplyGenerator()
	}
	return generator
}

func newSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock transcriber")
		return stt.NewMockSpeechToText(logger)
	}
	return stt.NewGoogleSpeechToText(logger)
}

func newTextToSpeech(cache *audiocache.Store, logger *zap.Logger) repositories.TextToSpeech {
	config := tts.NewElevenLabsConfigFromEnv()
	synthesizer, err := tts.NewElevenLabsTTS(config, cache, logger)
	if err != nil {
		logger.Warn("Failed to initialize ElevenLabs, using mock synthesizer", zap.Error(err))
		return tts.NewMockTextToSpeech(cache, logger)
	}
	return synthesizer
}

func newClassifier(logger *zap.Logger) repositories.ExpressionClassifier {
	classifier, err := vision.NewHuggingFaceClassifier(logger)
	if err != nil {
		logger.Warn("Failed to initialize Hugging Face classifier, using mock", zap.Error(err))
		return vision.NewMockClassifier()
	}
	return classifier
}

func newConversationRepository(logger *zap.Logger) (repositories.ConversationRepository, *adaptermongo.Client) {
	client, err := adaptermongo.NewClient(logger)
	if err != nil {
		logger.Warn("MongoDB unavailable, using in-memory conversation store", zap.Error(err))
		return memory.NewConversationRepository(), nil
	}
	return adaptermongo.NewConversationRepository(client.Database), client
}
