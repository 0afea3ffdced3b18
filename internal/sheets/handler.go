package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hvmc/store-backend/internal/oauth"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const sessionCookieName = "hvmc_session"

// Handler exposes the OAuth redirect endpoints and the admin export
// trigger.
type Handler struct {
	flow               *oauth.Flow
	exporter           *Exporter
	serviceAccountFile string
	defaultShareEmail  string
	logger             *logrus.Logger

	newUserClient    func(ctx context.Context, src oauth2.TokenSource) (SpreadsheetClient, error)
	newServiceClient func(ctx context.Context, credentialsFile string) (SpreadsheetClient, error)
}

func NewHandler(flow *oauth.Flow, exporter *Exporter, serviceAccountFile, defaultShareEmail string, logger *logrus.Logger) *Handler {
	return &Handler{
		flow:               flow,
		exporter:           exporter,
		serviceAccountFile: serviceAccountFile,
		defaultShareEmail:  defaultShareEmail,
		logger:             logger,
		newUserClient:      NewClientFromTokenSource,
		newServiceClient:   NewServiceAccountClient,
	}
}

// OAuthInit starts the authorization flow and redirects the user-agent to
// the Google consent page.
func (h *Handler) OAuthInit(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(w, r)
	http.Redirect(w, r, h.flow.AuthURL(sessionID), http.StatusFound)
}

// OAuthCallback completes the handshake, exports today's orders with the
// exchanged credential and redirects to the created spreadsheet.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "OAuth state missing or expired")
		return
	}

	query := r.URL.Query()
	token, err := h.flow.Callback(r.Context(), cookie.Value, query.Get("state"), query.Get("code"))
	if err != nil {
		var exchangeErr *oauth.TokenExchangeError
		switch {
		case errors.Is(err, oauth.ErrMissingState):
			h.respondWithError(w, http.StatusBadRequest, "OAuth state missing or expired")
		case errors.As(err, &exchangeErr):
			h.respondWithError(w, http.StatusBadRequest, "Failed to exchange authorization code")
		default:
			h.logger.WithError(err).Error("OAuth callback failed")
			h.respondWithError(w, http.StatusInternalServerError, "OAuth callback failed")
		}
		return
	}

	client, err := h.newUserClient(r.Context(), h.flow.TokenSource(r.Context(), token))
	if err != nil {
		h.logger.WithError(err).Error("Failed to create spreadsheet client")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create spreadsheet client")
		return
	}

	spreadsheetID, err := h.exporter.Export(r.Context(), client, time.Time{}, "")
	if err != nil {
		h.logger.WithError(err).Error("Spreadsheet export failed")
		h.respondWithError(w, http.StatusInternalServerError, "Spreadsheet export failed")
		return
	}

	http.Redirect(w, r, SpreadsheetURL(spreadsheetID), http.StatusFound)
}

type exportRequest struct {
	Date  string `json:"date"`
	Email string `json:"email"`
}

// AdminExport runs the service-account export for a given date, sharing
// the created spreadsheet with the target email.
func (h *Handler) AdminExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.Body != nil {
		// An empty body means today's orders and the configured email.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var day time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	email := req.Email
	if email == "" {
		email = h.defaultShareEmail
	}

	if h.serviceAccountFile == "" {
		h.respondWithError(w, http.StatusInternalServerError, "Service account export is not configured")
		return
	}

	client, err := h.newServiceClient(r.Context(), h.serviceAccountFile)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create spreadsheet client")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create spreadsheet client")
		return
	}

	spreadsheetID, err := h.exporter.Export(r.Context(), client, day, email)
	if err != nil {
		h.logger.WithError(err).Error("Spreadsheet export failed")
		h.respondWithError(w, http.StatusInternalServerError, "Spreadsheet export failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"spreadsheet_id": spreadsheetID,
		"url":            SpreadsheetURL(spreadsheetID),
	})
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	})
	return sessionID
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
