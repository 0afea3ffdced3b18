package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hvmc/store-backend/internal/catalog"
	"github.com/hvmc/store-backend/pkg/models"
)

// memStore is an in-memory Store used by the service and handler tests.
type memStore struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	users      map[string]models.User
	nextItemID int64
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[string]*models.Order),
		users:  make(map[string]models.User),
	}
}

func (s *memStore) addUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, order := range s.orders {
		count += len(order.Items)
	}
	return count
}

func (s *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *order
	clone.Items = make([]models.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	for i := range clone.Items {
		s.nextItemID++
		clone.Items[i].ID = s.nextItemID
	}
	s.orders[order.ID] = &clone
	order.Items = clone.Items
	return nil
}

func (s *memStore) ListByClient(_ context.Context, clientID string) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Order
	for _, order := range s.orders {
		if order.ClientID == clientID {
			clone := *order
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *memStore) GetByIDForClient(_ context.Context, orderID, clientID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.ClientID != clientID {
		return nil, ErrNotFound
	}
	clone := *order
	clone.Items = append([]models.OrderItem(nil), order.Items...)
	return &clone, nil
}

func (s *memStore) UpdateOrder(_ context.Context, orderID, clientID string, isSent bool, items []models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.ClientID != clientID {
		return ErrNotFound
	}
	order.IsSent = isSent
	if items != nil {
		order.Items = make([]models.OrderItem, len(items))
		copy(order.Items, items)
		for i := range order.Items {
			s.nextItemID++
			order.Items[i].ID = s.nextItemID
		}
	}
	return nil
}

func (s *memStore) DeleteOrder(_ context.Context, orderID, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.ClientID != clientID {
		return ErrNotFound
	}
	delete(s.orders, orderID)
	return nil
}

func (s *memStore) ExportRows(_ context.Context, start, end time.Time) ([]ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, order := range s.orders {
		if !order.CreatedAt.Before(start) && !order.CreatedAt.After(end) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var rows []ExportRow
	for _, id := range ids {
		order := s.orders[id]
		client := s.users[order.ClientID]
		for _, item := range order.Items {
			rows = append(rows, ExportRow{
				OrderID:     order.ID,
				ClientName:  client.Name,
				ClientEmail: client.Email,
				ClientPhone: client.Phone,
				CreatedAt:   order.CreatedAt,
				IsSent:      order.IsSent,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
			})
		}
	}
	return rows, nil
}

// stubCatalog resolves product ids from a fixed map.
type stubCatalog struct {
	products map[string]*models.Product
}

func newStubCatalog(products ...*models.Product) *stubCatalog {
	c := &stubCatalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *stubCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	product, ok := c.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return product, nil
}
