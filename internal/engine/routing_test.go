package engine

import (
	"testing"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

func TestRouteResolvesCategories(t *testing.T) {
	cases := []struct {
		category     string
		wantService  string
		wantPriority domain.TicketPriority
	}{
		{"flat tyre", ServiceOnSpot, domain.TicketPriorityNormal},
		{"Battery dead", ServiceOnSpot, domain.TicketPriorityNormal},
		{"needs a jump start", ServiceOnSpot, domain.TicketPriorityNormal},
		{"engine not starting", ServiceTechnicianAssessment, domain.TicketPriorityNormal},
		{"Overheating", ServiceTechnicianAssessment, domain.TicketPriorityHigh},
		{"temperature warning light", ServiceTechnicianAssessment, domain.TicketPriorityHigh},
		{"accident", ServiceTowing, domain.TicketPriorityEmergency},
		{"COLLISION on highway", ServiceTowing, domain.TicketPriorityEmergency},
	}
	for _, tc := range cases {
		service, priority, ok := Route(tc.category)
		if !ok {
			t.Fatalf("Route(%q) did not match", tc.category)
		}
		if service != tc.wantService || priority != tc.wantPriority {
			t.Fatalf("Route(%q) = %s/%s, want %s/%s", tc.category, service, priority, tc.wantService, tc.wantPriority)
		}
	}
}

func TestRouteUnknownCategory(t *testing.T) {
	for _, category := range []string{"", "strange noise", "windshield crack"} {
		if _, _, ok := Route(category); ok {
			t.Fatalf("Route(%q) matched unexpectedly", category)
		}
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	// "flat tyre after a crash" hits both the tyre and towing rows; the
	// first row in order must win every time.
	first, _, _ := Route("flat tyre after a crash")
	for i := 0; i < 10; i++ {
		got, _, _ := Route("flat tyre after a crash")
		if got != first {
			t.Fatalf("Route varied: %s vs %s", got, first)
		}
	}
	if first != ServiceOnSpot {
		t.Fatalf("first matching row should win, got %s", first)
	}
}
