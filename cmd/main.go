package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voicewire/voicewire/adapters/playback"
	"github.com/voicewire/voicewire/adapters/stt"
	"github.com/voicewire/voicewire/domain/repositories"
	"github.com/voicewire/voicewire/internal/api"
	"github.com/voicewire/voicewire/internal/auth"
	"github.com/voicewire/voicewire/usecase"
)

func main() {
	// Load .env if present; real deployments use the environment directly.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := usecase.SessionConfig{
		ServerURL:         getEnv("SERVER_WS_URL", "ws://localhost:8080/ws"),
		CallSetupURL:      getEnv("CALL_SETUP_URL", "http://localhost:8080/api/v1/calls"),
		RelayURL:          getEnv("CALL_RELAY_WS_URL", "ws://localhost:8080/ws/relay"),
		InterruptCooldown: getDurationMs("INTERRUPT_COOLDOWN_MS", usecase.DefaultInterruptCooldown),
		ToolGrace:         getDurationMs("TOOL_GRACE_MS", usecase.DefaultToolGrace),
		Audio: repositories.AudioConfig{
			SampleRate: getInt("MIC_SAMPLE_RATE", 16000),
			Encoding:   getEnv("MIC_ENCODING", "LINEAR16"),
			Language:   getEnv("MIC_LANGUAGE", "en-US"),
		},
	}

	deviceID := getEnv("DEVICE_ID", "dev-local")
	if secret := os.Getenv("DEVICE_SECRET"); secret != "" {
		token, err := auth.MintDeviceToken(deviceID, []byte(secret), 24*time.Hour)
		if err != nil {
			logger.Fatal("Failed to mint device token", zap.Error(err))
		}
		cfg.Token = token
	}

	// Microphone input and speaker output are sound-server pipes.
	micSource, err := os.Open(getEnv("MIC_PIPE", "/dev/stdin"))
	if err != nil {
		logger.Fatal("Failed to open microphone source", zap.Error(err))
	}
	defer micSource.Close()

	audioOut, err := os.OpenFile(getEnv("AUDIO_OUT_PIPE", "/dev/stdout"), os.O_WRONLY, 0)
	if err != nil {
		logger.Fatal("Failed to open audio output", zap.Error(err))
	}
	defer audioOut.Close()

	ctx := context.Background()
	recognizer := stt.NewGoogleRecognizer(logger)

	session, err := usecase.StartSession(ctx, cfg, recognizer, micSource,
		playback.NewWAVDecoder(), playback.NewWriterSink(audioOut), logger)
	if err != nil {
		logger.Fatal("Failed to start session", zap.Error(err))
	}

	// Local status surface: health, metrics, live graph snapshot.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.InitRoutes(e, session, logger)

	port := getEnv("STATUS_PORT", "8099")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the status server", zap.Error(err))
		}
	}()

	logger.Info("Conversation session running",
		zap.String("sessionID", session.ID),
		zap.String("server", cfg.ServerURL),
		zap.String("statusPort", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	session.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Status server forced to shutdown", zap.Error(err))
	}

	logger.Info("Session exited")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationMs(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
