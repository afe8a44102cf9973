package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/infra/supabase/migrations"
)

// DBConfig holds PostgreSQL connection configuration.
type DBConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PostgresStore implements Datastore on the backend's Postgres database.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(ctx context.Context, cfg DBConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db.DB, "."); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

func (s *PostgresStore) BeneficiaryByUserID(ctx context.Context, userID string) (*domain.Beneficiary, error) {
	var b domain.Beneficiary
	err := s.db.GetContext(ctx, &b, `
		SELECT id, user_id, rapidoc_uuid, asaas_customer_id, cpf, name, email, phone,
		       birth_date, zip_code, plan_id, status, updated_at
		FROM beneficiaries WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("beneficiaries")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) UpsertBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UpdatedAt = time.Now().UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO beneficiaries (id, user_id, rapidoc_uuid, asaas_customer_id, cpf, name, email,
		                           phone, birth_date, zip_code, plan_id, status, updated_at)
		VALUES (:id, :user_id, :rapidoc_uuid, :asaas_customer_id, :cpf, :name, :email,
		        :phone, :birth_date, :zip_code, :plan_id, :status, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			rapidoc_uuid = EXCLUDED.rapidoc_uuid,
			asaas_customer_id = EXCLUDED.asaas_customer_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`, b)
	if err != nil {
		return fmt.Errorf("failed to upsert beneficiary: %w", err)
	}
	return nil
}

func (s *PostgresStore) ProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.GetContext(ctx, &p,
		`SELECT user_id, name, email, phone, push_token FROM profiles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("profiles")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) InsertConsultationLog(ctx context.Context, l *domain.ConsultationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consultation_logs (id, user_id, beneficiary_uuid, kind, specialty_uuid,
		                               reference_uuid, status, synced_systems, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		l.ID, l.UserID, l.BeneficiaryUUID, l.Kind, l.SpecialtyUUID,
		l.ReferenceUUID, l.Status, pq.Array(l.SyncedSystems), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert consultation log: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO system_notifications (id, user_id, channel, template, title, message, read, created_at)
		VALUES (:id, :user_id, :channel, :template, :title, :message, :read, :created_at)
		ON CONFLICT (id) DO NOTHING`, n)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Plan(ctx context.Context, id string) (*domain.Plan, error) {
	var p domain.Plan
	err := s.db.GetContext(ctx, &p,
		`SELECT id, name, price, cycle, active FROM subscription_plans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("subscription_plans")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) InsertSubscription(ctx context.Context, r *domain.SubscriptionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, external_id, billing_type, cycle, value, status, created_at)
		VALUES (:id, :user_id, :plan_id, :external_id, :billing_type, :cycle, :value, :status, :created_at)
		ON CONFLICT (id) DO NOTHING`, r)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// Ping runs a trivial bounded read against the datastore.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var n int
	return s.db.GetContext(ctx, &n, `SELECT count(*) FROM (SELECT 1 FROM subscription_plans LIMIT 1) t`)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
