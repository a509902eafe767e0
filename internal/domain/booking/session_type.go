package booking

import (
	"fmt"
	"sort"
	"time"
)

type SessionType string

const (
	SessionDiscovery           SessionType = "discovery"
	SessionOneOnOne            SessionType = "one_on_one"
	SessionFamily              SessionType = "family"
	SessionPremiumConsultation SessionType = "premium_consultation"
)

// SessionTypeConfig is the fixed duration and price of a session type.
type SessionTypeConfig struct {
	Type            SessionType `json:"type"`
	Name            string      `json:"name"`
	DurationMinutes int         `json:"duration_minutes"`
	PriceCents      int64       `json:"price_cents"`
}

var sessionTypes = map[SessionType]SessionTypeConfig{
	SessionDiscovery:           {Type: SessionDiscovery, Name: "Discovery Call", DurationMinutes: 30, PriceCents: 0},
	SessionOneOnOne:            {Type: SessionOneOnOne, Name: "One-on-One Session", DurationMinutes: 60, PriceCents: 8700},
	SessionFamily:              {Type: SessionFamily, Name: "Family Session", DurationMinutes: 90, PriceCents: 12000},
	SessionPremiumConsultation: {Type: SessionPremiumConsultation, Name: "Premium Consultation", DurationMinutes: 60, PriceCents: 15000},
}

// LookupSessionType resolves a session type identifier.
func LookupSessionType(id string) (SessionTypeConfig, error) {
	cfg, ok := sessionTypes[SessionType(id)]
	if !ok {
		return SessionTypeConfig{}, fmt.Errorf("%w: %q", ErrUnknownSessionType, id)
	}
	return cfg, nil
}

// SessionTypes lists every configured session type ordered by identifier.
func SessionTypes() []SessionTypeConfig {
	out := make([]SessionTypeConfig, 0, len(sessionTypes))
	for _, cfg := range sessionTypes {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func (c SessionTypeConfig) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// IsFree reports whether the session is booked without payment.
func (c SessionTypeConfig) IsFree() bool {
	return c.PriceCents == 0
}
