package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/events"
)

type ticketFixture struct {
	svc      *TicketService
	tickets  *fakeTicketRepo
	sessions *fakeSessionRepo
}

func newTicketFixture() *ticketFixture {
	tickets := newFakeTicketRepo()
	sessions := newFakeSessionRepo()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		SessionRepo: sessions,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})
	return &ticketFixture{svc: svc, tickets: tickets, sessions: sessions}
}

func testDraft() TicketDraft {
	name := "Priya"
	return TicketDraft{
		SessionID:    "sess-1",
		CustomerID:   "cust-1",
		Source:       domain.TicketSourceEscalation,
		Reason:       string(domain.ReasonAgentRequest),
		Priority:     domain.TicketPriorityHigh,
		CustomerName: &name,
		Snapshot:     map[string]any{"issue": "battery"},
	}
}

func TestGetOrCreateIsIdempotentPerSession(t *testing.T) {
	f := newTicketFixture()

	first, created, err := f.svc.GetOrCreate(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Fatal("first call must create")
	}
	if first.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s, want OPEN", first.Status)
	}
	if !strings.HasPrefix(first.ExternalKey, "TCK-") {
		t.Fatalf("external key = %q", first.ExternalKey)
	}

	second, created, err := f.svc.GetOrCreate(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if created {
		t.Fatal("second call must not create")
	}
	if second.ID != first.ID {
		t.Fatalf("ticket ids diverged: %s vs %s", second.ID, first.ID)
	}
}

func TestGetOrCreateAfterFinalStatusOpensNewTicket(t *testing.T) {
	f := newTicketFixture()
	f.sessions.put(&domain.Session{ID: "sess-1", CustomerID: "cust-1", Status: domain.SessionStatusEscalated, Stage: domain.StageEscalated, Facts: domain.Facts{}})

	first, _, err := f.svc.GetOrCreate(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), first.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	second, created, err := f.svc.GetOrCreate(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("GetOrCreate after close: %v", err)
	}
	if !created || second.ID == first.ID {
		t.Fatal("a resolved ticket must not block a new hand-off")
	}
}

func TestUpdateStatusValidatesTransitions(t *testing.T) {
	f := newTicketFixture()
	f.sessions.put(&domain.Session{ID: "sess-1", CustomerID: "cust-1", Status: domain.SessionStatusEscalated, Stage: domain.StageEscalated, Facts: domain.Facts{}})
	ticket, _, _ := f.svc.GetOrCreate(context.Background(), testDraft())

	if _, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusOnSite); err == nil {
		t.Fatal("OPEN -> ON_SITE must be rejected")
	}
	updated, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusDispatched)
	if err != nil {
		t.Fatalf("OPEN -> DISPATCHED: %v", err)
	}
	if updated.Status != domain.TicketStatusDispatched {
		t.Fatalf("status = %s", updated.Status)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusOpen); err == nil {
		t.Fatal("DISPATCHED -> OPEN must be rejected")
	}
}

func TestUpdateStatusFinalResolvesSession(t *testing.T) {
	f := newTicketFixture()
	f.sessions.put(&domain.Session{ID: "sess-1", CustomerID: "cust-1", Status: domain.SessionStatusEscalated, Stage: domain.StageEscalated, Facts: domain.Facts{}})
	ticket, _, _ := f.svc.GetOrCreate(context.Background(), testDraft())

	if _, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	session, err := f.sessions.GetByID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if session.Status != domain.SessionStatusResolved {
		t.Fatalf("session status = %s, want RESOLVED", session.Status)
	}
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	f := newTicketFixture()
	ticket, _, _ := f.svc.GetOrCreate(context.Background(), testDraft())

	updated, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusOpen)
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if updated.Status != domain.TicketStatusOpen {
		t.Fatalf("status = %s", updated.Status)
	}
}

func TestListOpenExcludesFinalTickets(t *testing.T) {
	f := newTicketFixture()
	f.sessions.put(&domain.Session{ID: "sess-1", CustomerID: "cust-1", Status: domain.SessionStatusEscalated, Stage: domain.StageEscalated, Facts: domain.Facts{}})
	ticket, _, _ := f.svc.GetOrCreate(context.Background(), testDraft())
	if _, err := f.svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	draft := testDraft()
	draft.SessionID = "sess-2"
	if _, _, err := f.svc.GetOrCreate(context.Background(), draft); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	open, err := f.svc.ListOpen(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 || open[0].SessionID != "sess-2" {
		t.Fatalf("open queue = %+v", open)
	}
}
