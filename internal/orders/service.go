package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hvmc/store-backend/internal/catalog"
	"github.com/hvmc/store-backend/pkg/models"
	"github.com/sirupsen/logrus"
)

// ItemInput is one (product, quantity) pair of a create or replace request.
// A nil quantity means the default of 1.
type ItemInput struct {
	ProductID string `json:"product"`
	Quantity  *int   `json:"quantity"`
}

// Service implements the order operations with ownership scoping and
// catalog-backed validation on top of a Store.
type Service struct {
	store   Store
	catalog catalog.Lookup
	logger  *logrus.Logger
}

func NewService(store Store, lookup catalog.Lookup, logger *logrus.Logger) *Service {
	return &Service{
		store:   store,
		catalog: lookup,
		logger:  logger,
	}
}

func (s *Service) Create(ctx context.Context, clientID string, items []ItemInput) (*models.Order, error) {
	if clientID == "" {
		return nil, ErrUnauthenticated
	}

	resolved, err := s.resolveItems(ctx, items, true)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		CreatedAt: time.Now().UTC(),
		IsSent:    false,
		Items:     resolved,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"client_id":   clientID,
		"items_count": len(order.Items),
	}).Info("Order created")

	return order, nil
}

func (s *Service) ListForClient(ctx context.Context, clientID string) ([]*models.Order, error) {
	if clientID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.ListByClient(ctx, clientID)
}

func (s *Service) GetForClient(ctx context.Context, clientID, orderID string) (*models.Order, error) {
	if clientID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.GetByIDForClient(ctx, orderID, clientID)
}

// Update sets the sent flag when isSent is non-nil and replaces the full
// item set when items is non-empty; both are applied in one store
// transaction. An empty or missing item list leaves items untouched.
func (s *Service) Update(ctx context.Context, clientID, orderID string, isSent *bool, items []ItemInput) (*models.Order, error) {
	if clientID == "" {
		return nil, ErrUnauthenticated
	}

	current, err := s.store.GetByIDForClient(ctx, orderID, clientID)
	if err != nil {
		return nil, err
	}

	sent := current.IsSent
	if isSent != nil {
		sent = *isSent
	}

	var replacement []models.OrderItem
	if len(items) > 0 {
		replacement, err = s.resolveItems(ctx, items, false)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateOrder(ctx, orderID, clientID, sent, replacement); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":       orderID,
		"client_id":      clientID,
		"items_replaced": replacement != nil,
	}).Info("Order updated")

	return s.store.GetByIDForClient(ctx, orderID, clientID)
}

func (s *Service) Delete(ctx context.Context, clientID, orderID string) error {
	if clientID == "" {
		return ErrUnauthenticated
	}
	if err := s.store.DeleteOrder(ctx, orderID, clientID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"order_id":  orderID,
		"client_id": clientID,
	}).Info("Order deleted")
	return nil
}

// resolveItems validates quantities and product references and fills in
// resolved product names. requireItems rejects an empty list.
func (s *Service) resolveItems(ctx context.Context, items []ItemInput, requireItems bool) ([]models.OrderItem, error) {
	if len(items) == 0 {
		if requireItems {
			return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
		}
		return nil, nil
	}

	resolved := make([]models.OrderItem, 0, len(items))
	for _, input := range items {
		quantity := 1
		if input.Quantity != nil {
			quantity = *input.Quantity
		}
		if quantity < 1 {
			return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
		}

		product, err := s.catalog.GetProduct(ctx, input.ProductID)
		if err != nil {
			if err == catalog.ErrNotFound {
				return nil, &ValidationError{Field: "product", Message: "unknown product " + input.ProductID}
			}
			return nil, err
		}

		resolved = append(resolved, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
		})
	}
	return resolved, nil
}
