package structured

import (
	"context"
	"errors"

	"github.com/geogli/chatbot/internal/core/domain"
)

// Stub is the structured-data route before a real indicator database is
// attached. Every call reports the route as unavailable, which the router
// treats as a normal signal to fall back to retrieval.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (*Stub) QueryStructured(_ context.Context, _ string, _ domain.SearchHints) (*domain.StructuredResult, error) {
	return nil, domain.WrapError(domain.ErrRouteUnavailable, "structured query", errors.New("no structured source configured"))
}
