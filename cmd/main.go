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
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kaushikharsh99/MARK-2/adapters/audio"
	"github.com/kaushikharsh99/MARK-2/adapters/backendapi"
	"github.com/kaushikharsh99/MARK-2/adapters/llm"
	"github.com/kaushikharsh99/MARK-2/adapters/sqlite"
	"github.com/kaushikharsh99/MARK-2/adapters/stt"
	"github.com/kaushikharsh99/MARK-2/adapters/tts"
	"github.com/kaushikharsh99/MARK-2/domain/entities"
	"github.com/kaushikharsh99/MARK-2/domain/repositories"
	"github.com/kaushikharsh99/MARK-2/internal/api"
	"github.com/kaushikharsh99/MARK-2/internal/config"
	"github.com/kaushikharsh99/MARK-2/internal/notify"
	"github.com/kaushikharsh99/MARK-2/internal/settings"
	"github.com/kaushikharsh99/MARK-2/internal/telemetry"
	"github.com/kaushikharsh99/MARK-2/internal/transport"
	"github.com/kaushikharsh99/MARK-2/internal/voice"
	"github.com/kaushikharsh99/MARK-2/usecase"
)

func main() {
	// .env is optional; real environments set variables directly.
	godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.LogPath)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence
	store, err := sqlite.Open(cfg.DataPath, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	notices := notify.NewRing(100, logger)
	client := backendapi.NewClient(cfg.BackendURL, cfg.BackendToken, logger)

	// Chat transport
	channel, err := transport.NewChannel(cfg.BackendURL, nil, logger)
	if err != nil {
		logger.Fatal("Invalid backend URL", zap.Error(err))
	}

	coord := usecase.NewCoordinator(channel, client, store, notices, logger)
	channel.SetOnMessage(coord.HandleInbound)
	if err := channel.Connect(); err != nil {
		logger.Warn("Initial backend connection failed, will retry", zap.Error(err))
	}

	// Settings
	settingsStore := settings.NewStore(store, logger)
	settingsStore.SetOnChange(func(panelID string, values map[string]interface{}) {
		go func() {
			pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pushCancel()
			if err := client.PushConfig(pushCtx, panelID, values); err != nil {
				logger.Warn("Failed to sync settings to backend",
					zap.String("panel", panelID),
					zap.Error(err))
			}
		}()
	})

	// Telemetry
	poller := telemetry.NewPoller(client, logger)
	poller.SetOnUpdate(func(snap entities.TelemetrySnapshot) {
		settingsStore.ApplyProviders(snap.Providers)
	})
	coord.SetRefresher(poller)
	go poller.Run(ctx)

	// Voice pipeline
	var transcriber repositories.Transcriber = client
	if cfg.ASRProvider == "google" {
		transcriber = stt.NewGoogleTranscriber(cfg.ASRLanguage, logger)
	}
	source := audio.NewSource(cfg.CaptureCommand, logger)
	engine := voice.NewEngine(source, transcriber, notices, logger)
	engine.SetOnText(func(text string, speakResponse bool) {
		coord.Send(text, speakResponse)
	})
	engine.SetOnMicState(coord.NoteMicState)
	coord.SetOnMicOpen(func(open bool) { engine.SetMicOpen(ctx, open) })

	// Speech output
	player := tts.NewPlayer(cfg.PlaybackCommand, logger)
	var synthesizer repositories.TextToSpeech
	if elevenCfg := tts.NewElevenLabsConfigFromEnv(); elevenCfg.APIKey != "" {
		synthesizer, err = tts.NewElevenLabs(elevenCfg, logger)
		if err != nil {
			logger.Warn("Eleven Labs disabled", zap.Error(err))
		}
	}
	coord.SetSpeech(player, synthesizer)

	// Optional direct LLM path
	if cfg.ChatBackend == "gemini" {
		gemini, err := llm.NewGemini(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini backend", zap.Error(err))
		}
		gemini.Configure(settingsStore.AppSettings(), "")
		coord.SetDirectChat(gemini)
	}

	// Control API
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := api.NewServer(coord, settingsStore, poller, client, notices, channel, cfg.APISecret, logger)
	server.InitRoutes(e)

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("MARK-2 client started",
		zap.String("listen", cfg.ListenAddr),
		zap.String("backend", cfg.BackendURL),
		zap.String("asr_provider", cfg.ASRProvider),
		zap.String("chat_backend", cfg.ChatBackend))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Client is shutting down...")
	cancel()
	engine.Stop()
	channel.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Client exited")
}

// newLogger builds a production logger, mirrored to a rotating file when a
// log path is configured.
func newLogger(logPath string) *zap.Logger {
	if logPath == "" {
		logger, _ := zap.NewProduction()
		return logger
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, fileSink, zap.InfoLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zap.InfoLevel),
	)
	return zap.New(core)
}
