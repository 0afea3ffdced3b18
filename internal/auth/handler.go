package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hvmc/store-backend/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	users  UserStore
	tokens *TokenManager
	logger *logrus.Logger
}

func NewHandler(users UserStore, tokens *TokenManager, logger *logrus.Logger) *Handler {
	return &Handler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Wilaya   string `json:"wilaya"`
	Address  string `json:"address"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg := validateRegistration(req); msg != "" {
		h.respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		Phone:        req.Phone,
		Wilaya:       req.Wilaya,
		Address:      req.Address,
		IsActive:     true,
		PasswordHash: string(hash),
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if err == ErrEmailTaken {
			h.respondWithError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		h.logger.WithError(err).Error("Failed to create user")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	h.respondWithJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondWithError(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	if !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.respondWithError(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token pair")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User logged in")
	h.respondWithJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, err := h.tokens.ParseRefresh(req.Refresh)
	if err != nil {
		h.respondWithError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.Subject)
	if err != nil || !user.IsActive {
		h.respondWithError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	pair, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token pair")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"access": pair.Access})
}

func validateRegistration(req registerRequest) string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "Name is required"
	case strings.TrimSpace(req.Email) == "":
		return "Email is required"
	case !strings.Contains(req.Email, "@"):
		return "Enter a valid email address"
	case strings.TrimSpace(req.Phone) == "":
		return "Phone number is required"
	case len(req.Password) < 6:
		return "Password must be at least 6 characters"
	}
	return ""
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
