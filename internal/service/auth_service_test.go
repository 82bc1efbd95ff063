package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/auth"
	"github.com/spec-kit/roadside-assist/internal/domain"
)

type fakeCustomerRepo struct {
	byPhone map[string]*domain.Customer
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	r.byPhone[customer.Phone] = customer
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	for _, c := range r.byPhone {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	if c, ok := r.byPhone[phone]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeAgentRepo struct {
	byEmail map[string]*domain.Agent
}

func (r *fakeAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	for _, a := range r.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	if a, ok := r.byEmail[email]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeCustomerRepo, *fakeAgentRepo) {
	t.Helper()
	customers := &fakeCustomerRepo{byPhone: make(map[string]*domain.Customer)}
	agents := &fakeAgentRepo{byEmail: make(map[string]*domain.Agent)}
	svc := NewAuthService(AuthDependencies{
		CustomerRepo: customers,
		AgentRepo:    agents,
		Tokens:       auth.NewTokenManager("test-secret", 60),
		Logger:       zap.NewNop(),
		PhoneRegion:  "IN",
	})
	return svc, customers, agents
}

func TestLoginCustomerNormalizesPhone(t *testing.T) {
	svc, customers, _ := newAuthFixture(t)
	customers.byPhone["+919876543210"] = &domain.Customer{ID: "cust-1", Name: "Priya", Phone: "+919876543210"}

	// A bare national number should resolve to the stored E.164 record.
	result, err := svc.LoginCustomer(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("LoginCustomer: %v", err)
	}
	if result.SubjectID != "cust-1" || result.Subject != domain.SubjectTypeCustomer {
		t.Fatalf("result = %+v", result)
	}
	if result.Token == "" {
		t.Fatal("no token issued")
	}
}

func TestLoginCustomerUnknownPhone(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	if _, err := svc.LoginCustomer(context.Background(), "9876500000"); err == nil {
		t.Fatal("unknown phone must not authenticate")
	}
	if _, err := svc.LoginCustomer(context.Background(), ""); err == nil {
		t.Fatal("empty phone must be rejected")
	}
}

func TestLoginAgent(t *testing.T) {
	svc, _, agents := newAuthFixture(t)
	hash, err := auth.HashPassword("dispatch123", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	agents.byEmail["sarah@example.com"] = &domain.Agent{
		ID: "agent-1", Name: "Sarah", Email: "sarah@example.com",
		PasswordHash: hash, Active: true,
	}

	result, err := svc.LoginAgent(context.Background(), " Sarah@Example.com ", "dispatch123")
	if err != nil {
		t.Fatalf("LoginAgent: %v", err)
	}
	if result.Subject != domain.SubjectTypeAgent || result.SubjectID != "agent-1" {
		t.Fatalf("result = %+v", result)
	}

	if _, err := svc.LoginAgent(context.Background(), "sarah@example.com", "wrong"); err == nil {
		t.Fatal("bad password must not authenticate")
	}
}

func TestLoginAgentInactive(t *testing.T) {
	svc, _, agents := newAuthFixture(t)
	hash, _ := auth.HashPassword("dispatch123", 4)
	agents.byEmail["sam@example.com"] = &domain.Agent{
		ID: "agent-2", Name: "Sam", Email: "sam@example.com",
		PasswordHash: hash, Active: false,
	}
	if _, err := svc.LoginAgent(context.Background(), "sam@example.com", "dispatch123"); err == nil {
		t.Fatal("inactive agent must not authenticate")
	}
}
