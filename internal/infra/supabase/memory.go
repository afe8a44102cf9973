package supabase

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tema/internal/core/domain"
)

// MemoryStore is an in-process Datastore for development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	beneficiaries map[string]domain.Beneficiary
	profiles      map[string]domain.Profile
	plans         map[string]domain.Plan
	logs          []domain.ConsultationLog
	notifications []domain.Notification
	subscriptions []domain.SubscriptionRecord

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		beneficiaries: make(map[string]domain.Beneficiary),
		profiles:      make(map[string]domain.Profile),
		plans:         make(map[string]domain.Plan),
	}
}

// PutProfile seeds a profile.
func (m *MemoryStore) PutProfile(p domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

// PutPlan seeds a subscription plan.
func (m *MemoryStore) PutPlan(p domain.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
}

func (m *MemoryStore) BeneficiaryByUserID(_ context.Context, userID string) (*domain.Beneficiary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	b, ok := m.beneficiaries[userID]
	if !ok {
		return nil, notFound("beneficiaries")
	}
	return &b, nil
}

func (m *MemoryStore) UpsertBeneficiary(_ context.Context, b *domain.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UpdatedAt = time.Now().UTC()
	m.beneficiaries[b.UserID] = *b
	return nil
}

func (m *MemoryStore) ProfileByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, notFound("profiles")
	}
	return &p, nil
}

func (m *MemoryStore) InsertConsultationLog(_ context.Context, l *domain.ConsultationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if slices.ContainsFunc(m.logs, func(e domain.ConsultationLog) bool { return e.ID == l.ID }) {
		return nil
	}
	m.logs = append(m.logs, *l)
	return nil
}

func (m *MemoryStore) InsertNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if slices.ContainsFunc(m.notifications, func(e domain.Notification) bool { return e.ID == n.ID }) {
		return nil
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryStore) Plan(_ context.Context, id string) (*domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.plans[id]
	if !ok {
		return nil, notFound("subscription_plans")
	}
	return &p, nil
}

func (m *MemoryStore) InsertSubscription(_ context.Context, r *domain.SubscriptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if slices.ContainsFunc(m.subscriptions, func(e domain.SubscriptionRecord) bool { return e.ID == r.ID }) {
		return nil
	}
	m.subscriptions = append(m.subscriptions, *r)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Err
}

func (m *MemoryStore) Close() error { return nil }

// ConsultationLogs returns a copy of the recorded logs.
func (m *MemoryStore) ConsultationLogs() []domain.ConsultationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ConsultationLog(nil), m.logs...)
}

// Notifications returns a copy of the recorded notifications.
func (m *MemoryStore) Notifications() []domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Notification(nil), m.notifications...)
}

// Subscriptions returns a copy of the recorded subscriptions.
func (m *MemoryStore) Subscriptions() []domain.SubscriptionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SubscriptionRecord(nil), m.subscriptions...)
}
