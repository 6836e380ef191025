package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/joho/godotenv/autoload"

	"samaj/internal/database"
	"samaj/internal/repositories"
	"samaj/internal/services"
)

type Server struct {
	port        int
	httpServer  *http.Server
	db          database.Service
	userService services.UserService
	authService services.AuthService
	otpService  services.OTPService
	tokenCfg    services.TokenConfig
}

func NewServer() *Server {
	portStr := os.Getenv("PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Warn().Str("port", portStr).Msg("Invalid PORT environment variable. Using default 8080.")
		port = 8080
	}

	db := database.New()

	userRepo := repositories.NewUserRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	ensureIndexes(userRepo, otpRepo)

	emailService := services.NewEmailService(emailConfigFromEnv())
	smsGateway := services.NewSMSGateway(smsConfigFromEnv())
	tokenCfg := tokenConfigFromEnv()

	s := &Server{
		port:        port,
		db:          db,
		userService: services.NewUserService(userRepo),
		authService: services.NewAuthService(userRepo, tokenCfg),
		otpService:  services.NewOTPService(userRepo, otpRepo, emailService, smsGateway),
		tokenCfg:    tokenCfg,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// ensureIndexes sets up the uniqueness constraints and the OTP TTL index on
// boot. Without the TTL index stale challenges would stay verifiable forever,
// so a failure here is fatal.
func ensureIndexes(userRepo repositories.UserRepository, otpRepo repositories.OTPRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user indexes")
	}
	if err := otpRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create OTP indexes")
	}
}

func emailConfigFromEnv() services.EmailConfig {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	return services.EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

func smsConfigFromEnv() services.SMSConfig {
	timeout, err := time.ParseDuration(os.Getenv("SMS_GATEWAY_TIMEOUT"))
	if err != nil {
		timeout = 10 * time.Second
	}
	return services.SMSConfig{
		Endpoint: os.Getenv("SMS_GATEWAY_ENDPOINT"),
		Username: os.Getenv("SMS_GATEWAY_USERNAME"),
		Password: os.Getenv("SMS_GATEWAY_PASSWORD"),
		Timeout:  timeout,
	}
}

func tokenConfigFromEnv() services.TokenConfig {
	accessTTL, err := time.ParseDuration(os.Getenv("ACCESS_TOKEN_EXPIRY"))
	if err != nil {
		accessTTL = 15 * time.Minute
	}
	refreshTTL, err := time.ParseDuration(os.Getenv("REFRESH_TOKEN_EXPIRY"))
	if err != nil {
		refreshTTL = 7 * 24 * time.Hour
	}
	cfg := services.TokenConfig{
		AccessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		log.Fatal().Msg("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	return cfg
}

func (s *Server) Start() error {
	log.Info().Int("port", s.port).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
