package engine

import (
	"strings"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// Service types the router can resolve an issue to.
const (
	ServiceOnSpot               = "on_spot"
	ServiceTechnicianAssessment = "technician_assessment"
	ServiceTowing               = "towing"
)

type route struct {
	keywords    []string
	serviceType string
	priority    domain.TicketPriority
}

// routes are checked in order; the first keyword hit wins.
var routes = []route{
	{[]string{"flat", "tyre"}, ServiceOnSpot, domain.TicketPriorityNormal},
	{[]string{"battery", "jump"}, ServiceOnSpot, domain.TicketPriorityNormal},
	{[]string{"engine", "start", "not starting"}, ServiceTechnicianAssessment, domain.TicketPriorityNormal},
	{[]string{"overheat", "temperature"}, ServiceTechnicianAssessment, domain.TicketPriorityHigh},
	{[]string{"accident", "collision", "crash"}, ServiceTowing, domain.TicketPriorityEmergency},
}

// Route resolves a normalized issue category to a service type and baseline
// priority. The third return is false when no row matches; routing never
// escalates by itself.
func Route(issueCategory string) (string, domain.TicketPriority, bool) {
	c := strings.ToLower(strings.TrimSpace(issueCategory))
	if c == "" {
		return "", "", false
	}
	for _, r := range routes {
		for _, kw := range r.keywords {
			if strings.Contains(c, kw) {
				return r.serviceType, r.priority, true
			}
		}
	}
	return "", "", false
}
