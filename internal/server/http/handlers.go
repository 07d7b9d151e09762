package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	msgOTPResent     = "OTP resent to your email"
	msgPasswordReset = "Password has been reset"
	msgBadAuthHeader = "Missing or invalid Authorization header"
	msgTokenExpired  = "Token expired"
	msgTokenInvalid  = "Invalid token"
)

// CredentialService is the part of services.CredentialService the API uses.
type CredentialService interface {
	RequestSignup(ctx context.Context, username, email, password string) (*services.SignupAck, error)
	VerifyOtp(ctx context.Context, identityID, code string) (string, error)
	ResendOtp(ctx context.Context, identityID string) error
	RequestReset(ctx context.Context, email string) (*services.Ack, error)
	ConsumeReset(ctx context.Context, token, newPassword string) error
	Login(ctx context.Context, login, password string) (string, error)
	Validate(ctx context.Context, token string) (*auth.Claims, error)
	LookupPendingID(ctx context.Context, email string) (string, error)
}

type Handlers struct {
	svc    CredentialService
	logger logging.Logger
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	a.HandleFunc("/verify-otp/{identityId}", h.verifyOtp).Methods(http.MethodPost)
	a.HandleFunc("/resend-otp/{identityId}", h.resendOtp).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.HandleFunc("/validate", h.validate).Methods(http.MethodPost)
	a.HandleFunc("/forgot-password", h.forgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", h.resetPassword).Methods(http.MethodPost)
	a.HandleFunc("/get-userId", h.getUserID).Methods(http.MethodPost)
	a.HandleFunc("/check-alive", h.checkAlive).Methods(http.MethodGet)
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOtpRequest struct {
	OtpCode string `json:"otpCode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// identityID reads the path id; anything that is not a uuid cannot name
// an identity.
func identityID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(mux.Vars(r)["identityId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid identity id")
		return "", false
	}
	return id.String(), true
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}

	ack, err := h.svc.RequestSignup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.logFailure(r, "signup", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"message":    ack.Message,
		"identityId": ack.IdentityID,
	})
}

func (h *Handlers) verifyOtp(w http.ResponseWriter, r *http.Request) {
	id, ok := identityID(w, r)
	if !ok {
		return
	}
	var req verifyOtpRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.svc.VerifyOtp(r.Context(), id, req.OtpCode)
	if err != nil {
		h.logFailure(r, "verify-otp", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handlers) resendOtp(w http.ResponseWriter, r *http.Request) {
	id, ok := identityID(w, r)
	if !ok {
		return
	}

	if err := h.svc.ResendOtp(r.Context(), id); err != nil {
		h.logFailure(r, "resend-otp", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": msgOTPResent})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	login := req.Email
	if login == "" {
		login = req.Username
	}

	token, err := h.svc.Login(r.Context(), login, req.Password)
	if err != nil {
		h.logFailure(r, "login", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// validate is what the gateway calls in HTTP verifier mode.
func (h *Handlers) validate(w http.ResponseWriter, r *http.Request) {
	failed := func(msg string) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "failed", "message": msg})
	}

	token, ok := common.BearerToken(r.Header.Get(common.AuthorizationHeader))
	if !ok {
		failed(msgBadAuthHeader)
		return
	}

	claims, err := h.svc.Validate(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			failed(msgTokenExpired)
			return
		}
		failed(msgTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "username": claims.Subject})
}

func (h *Handlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}

	ack, err := h.svc.RequestReset(r.Context(), req.Email)
	if err != nil {
		h.logFailure(r, "forgot-password", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": ack.Message})
}

func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ConsumeReset(r.Context(), r.URL.Query().Get("token"), req.Password); err != nil {
		h.logFailure(r, "reset-password", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": msgPasswordReset})
}

func (h *Handlers) getUserID(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := h.svc.LookupPendingID(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": id})
}

func (h *Handlers) checkAlive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *Handlers) logFailure(r *http.Request, op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error(r.Context(), op+" failed", "error", err)
		return
	}
	h.logger.Debug(r.Context(), op+" rejected", "error", err)
}
