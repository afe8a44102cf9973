// Package auth implements CPF login, bearer tokens and session lifecycle.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/resilience/retry"
	"github.com/vietddude/tema/internal/session"
)

// BeneficiaryFinder looks beneficiaries up at the telehealth provider.
type BeneficiaryFinder interface {
	FindBeneficiaryByCPF(ctx context.Context, cpf string) (*domain.Beneficiary, error)
}

var (
	ErrInvalidCPF      = &apperr.AppError{Kind: apperr.KindValidation, Message: "CPF inválido. Informe os 11 dígitos."}
	ErrWrongPassword   = &apperr.AppError{Kind: apperr.KindAuthentication, Message: "Senha incorreta. Use os 4 primeiros dígitos do seu CPF."}
	ErrUnknownCPF      = &apperr.AppError{Kind: apperr.KindNotFound, Message: "CPF não encontrado. Verifique se você possui um plano ativo."}
	ErrInactive        = &apperr.AppError{Kind: apperr.KindForbidden, Message: "Seu plano não está ativo. Entre em contato com o suporte."}
	ErrSessionNotFound = &apperr.AppError{Kind: apperr.KindAuthentication, Message: apperr.KindAuthentication.Message()}
	ErrInvalidRefresh  = &apperr.AppError{Kind: apperr.KindAuthentication, Message: apperr.KindAuthentication.Message()}
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Session *domain.Session `json:"session"`
	Tokens  domain.Tokens   `json:"tokens"`
}

// Service authenticates beneficiaries.
type Service struct {
	finder     BeneficiaryFinder
	sessions   *session.Store
	issuer     *Issuer
	classifier *apperr.Classifier
	retry      retry.Config
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRetry sets the policy for the beneficiary lookup at login.
func WithRetry(cfg retry.Config) Option {
	return func(s *Service) { s.retry = cfg }
}

func NewService(finder BeneficiaryFinder, sessions *session.Store, issuer *Issuer, classifier *apperr.Classifier, opts ...Option) *Service {
	s := &Service{
		finder:     finder,
		sessions:   sessions,
		issuer:     issuer,
		classifier: classifier,
		retry:      retry.DefaultConfig,
		log:        slog.Default().With("component", "auth"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issuer returns the token issuer used by request middleware.
func (s *Service) Issuer() *Issuer { return s.issuer }

// Login checks the CPF password locally, then resolves the beneficiary remotely.
func (s *Service) Login(ctx context.Context, cpf, password string) (*LoginResult, error) {
	cpf = domain.NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return nil, ErrInvalidCPF
	}
	if password != domain.CPFPassword(cpf) {
		return nil, ErrWrongPassword
	}

	b, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*domain.Beneficiary, error) {
		return s.finder.FindBeneficiaryByCPF(ctx, cpf)
	})
	if err != nil {
		if apperr.Classify(err) == apperr.KindNotFound {
			return nil, ErrUnknownCPF
		}
		return nil, s.classifier.Handle(err, "auth.login")
	}
	if !b.IsActive() {
		return nil, ErrInactive
	}

	sess := &domain.Session{
		BeneficiaryUUID: b.UUID,
		CPF:             cpf,
		Name:            b.Name,
		Email:           b.Email,
		Phone:           b.Phone,
		IsAuthenticated: true,
		LoginDate:       s.now().UTC(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, s.classifier.Handle(err, "auth.save_session")
	}

	tokens, err := s.grant(ctx, b.UUID)
	if err != nil {
		return nil, err
	}
	s.log.Info("Beneficiary logged in", "beneficiary", b.UUID)
	return &LoginResult{Session: sess, Tokens: tokens}, nil
}

func (s *Service) grant(ctx context.Context, beneficiaryUUID string) (domain.Tokens, error) {
	tokens, refreshID, err := s.issuer.Issue(beneficiaryUUID)
	if err != nil {
		return domain.Tokens{}, s.classifier.Handle(err, "auth.issue_tokens")
	}
	if err := s.sessions.GrantRefresh(ctx, refreshID, beneficiaryUUID, s.issuer.RefreshTTL()); err != nil {
		return domain.Tokens{}, s.classifier.Handle(err, "auth.grant_refresh")
	}
	return tokens, nil
}

// Refresh rotates a refresh token. Each refresh token is accepted once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	claims, err := s.issuer.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return domain.Tokens{}, ErrInvalidRefresh
	}
	owner, err := s.sessions.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		return domain.Tokens{}, s.classifier.Handle(err, "auth.refresh")
	}
	if owner == "" || owner != claims.BeneficiaryUUID {
		return domain.Tokens{}, ErrInvalidRefresh
	}
	sess, err := s.sessions.Load(ctx, owner)
	if err != nil {
		return domain.Tokens{}, s.classifier.Handle(err, "auth.refresh")
	}
	if sess == nil || !sess.IsAuthenticated {
		return domain.Tokens{}, ErrSessionNotFound
	}
	return s.grant(ctx, owner)
}

// Logout deletes the session and, when given, revokes the refresh token.
func (s *Service) Logout(ctx context.Context, beneficiaryUUID, refreshToken string) error {
	if refreshToken != "" {
		if claims, err := s.issuer.Parse(refreshToken, TokenRefresh); err == nil {
			if err := s.sessions.RevokeRefresh(ctx, claims.ID); err != nil {
				s.log.Warn("Failed to revoke refresh token", "error", err)
			}
		}
	}
	if err := s.sessions.Delete(ctx, beneficiaryUUID); err != nil {
		return s.classifier.Handle(err, "auth.logout")
	}
	s.log.Info("Beneficiary logged out", "beneficiary", beneficiaryUUID)
	return nil
}

// CurrentSession returns the stored session for beneficiaryUUID.
func (s *Service) CurrentSession(ctx context.Context, beneficiaryUUID string) (*domain.Session, error) {
	sess, err := s.sessions.Load(ctx, beneficiaryUUID)
	if err != nil {
		return nil, s.classifier.Handle(err, "auth.session")
	}
	if sess == nil || !sess.IsAuthenticated {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// IsWrongPassword reports whether err is the local password rejection.
func IsWrongPassword(err error) bool {
	return errors.Is(err, ErrWrongPassword)
}
