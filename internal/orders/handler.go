package orders

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hvmc/store-backend/internal/auth"
	"github.com/hvmc/store-backend/internal/events"
	"github.com/hvmc/store-backend/pkg/models"
	"github.com/sirupsen/logrus"
)

type WebSocketHub interface {
	Broadcast(messageType string, data interface{})
}

type EventPublisher interface {
	PublishOrderCreated(event events.OrderCreatedEvent) error
}

type Handler struct {
	service  *Service
	producer EventPublisher
	logger   *logrus.Logger
	wsHub    WebSocketHub
}

func NewHandler(service *Service, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SetEventPublisher enables order.created event publishing. Optional.
func (h *Handler) SetEventPublisher(producer EventPublisher) {
	h.producer = producer
}

// SetWebSocketHub enables order broadcasts to the admin feed. Optional.
func (h *Handler) SetWebSocketHub(hub WebSocketHub) {
	h.wsHub = hub
}

type createOrderRequest struct {
	Items []ItemInput `json:"items"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode order request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.Create(r.Context(), user.ID, req.Items)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to create order")
		return
	}

	if h.producer != nil {
		event := events.OrderCreatedEvent{
			OrderID:    order.ID,
			ClientID:   order.ClientID,
			ItemsCount: len(order.Items),
			CreatedAt:  order.CreatedAt,
		}
		if err := h.producer.PublishOrderCreated(event); err != nil {
			h.logger.WithError(err).Error("Failed to publish order created event")
			// Don't fail the request, just log the error
		}
	}

	if h.wsHub != nil {
		h.wsHub.Broadcast("order_created", order)
	}

	h.respondWithJSON(w, http.StatusCreated, models.OrderResponse{
		Success: true,
		Message: "Order created successfully",
		Order:   order,
	})
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	orders, err := h.service.ListForClient(r.Context(), user.ID)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	h.logger.WithFields(logrus.Fields{
		"client_id": user.ID,
		"count":     len(orders),
	}).Info("Retrieved order history")

	h.respondWithJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	order, err := h.service.GetForClient(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to get order")
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

type updateOrderRequest struct {
	IsSent *bool       `json:"is_sent"`
	Items  []ItemInput `json:"items"`
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode order update request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.Update(r.Context(), user.ID, mux.Vars(r)["id"], req.IsSent, req.Items)
	if err != nil {
		h.respondWithServiceError(w, err, "Failed to update order")
		return
	}

	h.respondWithJSON(w, http.StatusOK, order)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		h.respondWithServiceError(w, err, "Failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case err == ErrNotFound:
		h.respondWithError(w, http.StatusNotFound, "Order not found")
	case err == ErrUnauthenticated:
		h.respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
	case IsValidation(err):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).Error(fallback)
		h.respondWithError(w, http.StatusInternalServerError, fallback)
	}
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
