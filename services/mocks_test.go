package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/database"
	"storefront/models"
	"storefront/payment"
)

type mockProvider struct {
	intent *payment.Intent
	err    error
	calls  []payment.IntentParams
}

func (m *mockProvider) CreatePaymentIntent(_ context.Context, params payment.IntentParams) (*payment.Intent, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.intent, nil
}

func (m *mockProvider) ConfirmPaymentIntent(context.Context, string, payment.PaymentMethod) (*payment.Intent, error) {
	return nil, errors.New("not implemented")
}

func (m *mockProvider) CancelPaymentIntent(context.Context, string) (*payment.Intent, error) {
	return nil, errors.New("not implemented")
}

// mockOrderStore keeps orders keyed by payment intent id.
type mockOrderStore struct {
	mu        sync.Mutex
	byIntent  map[string]*models.Order
	createErr error
	updateErr error
	updates   int
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{byIntent: map[string]*models.Order{}}
}

func (m *mockOrderStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byIntent[order.PaymentIntentID]; exists {
		return database.ErrDuplicate
	}
	cp := *order
	m.byIntent[order.PaymentIntentID] = &cp
	return nil
}

func (m *mockOrderStore) UpdatePaymentStatus(_ context.Context, intentID, paymentStatus, orderStatus string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	order, ok := m.byIntent[intentID]
	if !ok {
		return nil, database.ErrNotFound
	}
	m.updates++
	order.PaymentStatus = paymentStatus
	if orderStatus != "" {
		order.OrderStatus = orderStatus
	}
	cp := *order
	return &cp, nil
}

func (m *mockOrderStore) find(orderID string) *models.Order {
	for _, o := range m.byIntent {
		if o.ID == orderID {
			return o
		}
	}
	return nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.find(orderID); o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockOrderStore) GetUserOrder(_ context.Context, userID, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o := m.find(orderID); o != nil && o.UserID == userID {
		cp := *o
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockOrderStore) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.byIntent {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.byIntent {
		if filter.OrderStatus == "" || o.OrderStatus == filter.OrderStatus {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.find(orderID)
	if o == nil {
		return database.ErrNotFound
	}
	o.OrderStatus = status
	return nil
}

type publishedEvent struct {
	event    models.OrderEvent
	priority uint8
	delay    time.Duration
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent, priority uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{event: event, priority: priority})
	return m.err
}

func (m *mockPublisher) PublishDelayedEvent(_ context.Context, event models.OrderEvent, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{event: event, delay: delay})
	return m.err
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.event.Type)
	}
	return out
}

type mockAdminRepo struct {
	admins    map[string]*models.Admin
	createErr error
	lastLogin map[string]bool
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: map[string]*models.Admin{}, lastLogin: map[string]bool{}}
}

func (m *mockAdminRepo) CreateAdmin(_ context.Context, admin *models.Admin) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.admins {
		if a.Email == admin.Email || a.Username == admin.Username {
			return database.ErrDuplicate
		}
	}
	cp := *admin
	m.admins[admin.ID] = &cp
	return nil
}

func (m *mockAdminRepo) GetAdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockAdminRepo) IsAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := m.admins[userID]
	return ok, nil
}

func (m *mockAdminRepo) UpdateAdminLastLogin(_ context.Context, adminID string) error {
	if _, ok := m.admins[adminID]; !ok {
		return database.ErrNotFound
	}
	m.lastLogin[adminID] = true
	return nil
}
