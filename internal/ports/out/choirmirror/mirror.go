package choirmirror

import (
	"context"

	"github.com/umbral-esperanza/choir-console-api/internal/domain"
)

// Mirror is an optional remote row-upsert sink for choir records. It is a
// best-effort cache fill: the local commit has already happened when Upsert
// is called, and a failure must never roll it back. Callers log and move on.
type Mirror interface {
	Upsert(ctx context.Context, c domain.Choir) error
}

// Nop discards upserts. Used when no remote mirror is configured.
type Nop struct{}

func (Nop) Upsert(context.Context, domain.Choir) error { return nil }
