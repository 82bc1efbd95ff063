package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/auth"
	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/repository"
	"github.com/spec-kit/roadside-assist/pkg/util"
)

// AuthService issues tokens for customers and agents.
type AuthService struct {
	customers   repository.CustomerRepository
	agents      repository.AgentRepository
	tokens      *auth.TokenManager
	logger      *zap.Logger
	phoneRegion string
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	CustomerRepo repository.CustomerRepository
	AgentRepo    repository.AgentRepository
	Tokens       *auth.TokenManager
	Logger       *zap.Logger
	PhoneRegion  string
}

// NewAuthService constructs the auth service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		customers:   deps.CustomerRepo,
		agents:      deps.AgentRepo,
		tokens:      deps.Tokens,
		logger:      deps.Logger,
		phoneRegion: deps.PhoneRegion,
	}
}

// LoginResult carries a freshly issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Subject   domain.SubjectType
	SubjectID string
	Name      string
}

// LoginCustomer authenticates a customer by registered phone number. Numbers
// are normalized to E.164 before lookup so "9876543210" and "+91 98765
// 43210" resolve to the same account.
func (s *AuthService) LoginCustomer(ctx context.Context, phone string) (*LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, util.NewValidationError("phone is required", nil)
	}

	customer, err := s.customers.GetByPhone(ctx, s.normalizePhone(phone))
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		customer, err = s.customers.GetByPhone(ctx, phone)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("unknown phone number")
		}
		return nil, util.NewInternalError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, domain.SubjectTypeCustomer)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Subject:   domain.SubjectTypeCustomer,
		SubjectID: customer.ID,
		Name:      customer.Name,
	}, nil
}

// LoginAgent authenticates an agent by email and password.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, util.NewValidationError("email and password are required", nil)
	}

	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, util.NewInternalError(err)
	}
	if !agent.Active {
		return nil, util.NewForbidden("agent account disabled")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, util.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Subject:   domain.SubjectTypeAgent,
		SubjectID: agent.ID,
		Name:      agent.Name,
	}, nil
}

func (s *AuthService) normalizePhone(raw string) string {
	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
