package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"samaj/internal/middlewares"
	"samaj/internal/models"
	"samaj/internal/services"
	"samaj/internal/utils"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"

	// Header the admin portal sets on every auth call. Its presence gates
	// login to admin-role accounts.
	adminFrontendHeader = "X-Admin-Frontend"
)

type AuthHandler struct {
	authService services.AuthService
	otpService  services.OTPService
	tokenCfg    services.TokenConfig
}

func NewAuthHandler(authService services.AuthService, otpService services.OTPService, tokenCfg services.TokenConfig) *AuthHandler {
	return &AuthHandler{authService: authService, otpService: otpService, tokenCfg: tokenCfg}
}

func isAdminAudience(r *http.Request) bool {
	return r.Header.Get(adminFrontendHeader) == "true"
}

// SendOTP checks credentials and dispatches a login challenge over the
// requested channel. An omitted deliveryMethod means email.
func (a *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body for SendOTP")
		utils.SendJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		utils.SendJSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}
	if req.DeliveryMethod == "" {
		req.DeliveryMethod = models.DeliveryEmail
	}
	if !req.DeliveryMethod.Valid() {
		utils.SendJSONError(w, "invalid delivery method", http.StatusBadRequest)
		return
	}

	user, err := a.authService.VerifyCredentials(r.Context(), req.Email, req.Password, isAdminAudience(r))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	handle, err := a.otpService.SendLoginOTP(r.Context(), user, req.DeliveryMethod)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.SendOTPResponse{
		Token:          handle.Token,
		Identifier:     handle.Identifier,
		DeliveryMethod: handle.DeliveryMethod,
		Message:        handle.Message,
	})
}

// VerifyOTP completes the login: on a correct code it issues the session
// pair and sets both cookies.
func (a *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body for VerifyOTP")
		utils.SendJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Token == "" || req.OTP == "" {
		utils.SendJSONError(w, "token and otp are required", http.StatusBadRequest)
		return
	}
	if req.DeliveryMethod == "" {
		req.DeliveryMethod = models.DeliveryEmail
	}

	user, err := a.otpService.VerifyLoginOTP(r.Context(), req.Token, req.OTP, req.DeliveryMethod)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	tokens, err := a.authService.IssueSession(r.Context(), user)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	a.setSessionCookies(w, tokens)
	utils.RespondWithJSON(w, http.StatusOK, models.VerifyOTPResponse{
		LoggedInUser: user.Redacted(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// RefreshToken rotates the session pair from the refresh cookie.
func (a *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		utils.SendJSONError(w, "unauthorized access", http.StatusUnauthorized)
		return
	}

	user, tokens, err := a.authService.RefreshSession(r.Context(), cookie.Value)
	if err != nil {
		a.clearSessionCookies(w)
		utils.RespondWithError(w, err)
		return
	}

	a.setSessionCookies(w, tokens)
	utils.RespondWithJSON(w, http.StatusOK, models.VerifyOTPResponse{
		LoggedInUser: user.Redacted(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout revokes the stored refresh credential and clears both cookies. It
// is idempotent: a second call without cookies still succeeds.
func (a *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	if err := a.authService.Logout(r.Context(), refreshToken); err != nil {
		a.clearSessionCookies(w)
		utils.RespondWithError(w, err)
		return
	}

	a.clearSessionCookies(w)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// CheckAuth reports the authenticated member loaded by the auth middleware.
func (a *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "unauthorized access", http.StatusUnauthorized)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// Both frontends run on separate origins from the API, so the cookies are
// Lax+Secure+HttpOnly across the board.
func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *AuthHandler) setSessionCookies(w http.ResponseWriter, tokens *services.SessionTokens) {
	http.SetCookie(w, sessionCookie(accessCookieName, tokens.AccessToken, int(a.tokenCfg.AccessTTL.Seconds())))
	http.SetCookie(w, sessionCookie(refreshCookieName, tokens.RefreshToken, int(a.tokenCfg.RefreshTTL.Seconds())))
}

func (a *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(accessCookieName, "", -1))
	http.SetCookie(w, sessionCookie(refreshCookieName, "", -1))
}
