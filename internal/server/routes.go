package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"samaj/internal/handlers"
	"samaj/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	prom := middlewares.NewPrometheusMiddleware()
	r.Use(middlewares.CorsMiddleware)
	r.Use(middlewares.RateLimit)
	r.Use(prom.Instrument)

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/", ch.HelloHandler)
	r.HandleFunc("/health", ch.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	s.registerUserRoutes(r)

	go middlewares.CleanupVisitors()

	return r
}

func (s *Server) registerUserRoutes(r *mux.Router) {
	uh := handlers.NewUserHandler(s.userService)
	ah := handlers.NewAuthHandler(s.authService, s.otpService, s.tokenCfg)
	auth := middlewares.NewAuthMiddleware(s.authService)

	api := r.PathPrefix("/api/v1/user").Subrouter()

	// Public routes
	api.HandleFunc("/register", uh.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/send-otp", ah.SendOTP).Methods("POST", "OPTIONS")
	api.HandleFunc("/verify-otp", ah.VerifyOTP).Methods("POST", "OPTIONS")
	api.HandleFunc("/refresh-token", ah.RefreshToken).Methods("POST", "OPTIONS")

	// Logout stays public so a second call with no cookies still succeeds.
	api.HandleFunc("/logout", ah.Logout).Methods("POST", "OPTIONS")

	// Protected routes
	api.Handle("/check-auth", auth.Require(http.HandlerFunc(ah.CheckAuth))).Methods("GET", "OPTIONS")
	api.Handle("/get-user/{id}", auth.Require(http.HandlerFunc(uh.GetUserByID))).Methods("GET", "OPTIONS")
	api.Handle("/update-user/{id}", auth.Require(http.HandlerFunc(uh.UpdateUser))).Methods("PATCH", "OPTIONS")

	// Admin-only routes
	api.Handle("/get-all-users", auth.RequireAdmin(http.HandlerFunc(uh.GetAllUsers))).Methods("GET", "OPTIONS")
	api.Handle("/delete-user/{id}", auth.RequireAdmin(http.HandlerFunc(uh.DeleteUser))).Methods("DELETE", "OPTIONS")
}
