package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/cumulus/internal/adapters/postgres"
	"github.com/samirrijal/cumulus/internal/adapters/valkey"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/render"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Query    *usecases.QueryService
	Renderer *render.Renderer
	// OutputDir is served read-only under /output.
	OutputDir string
	// SpecPath overrides DefaultSpecPath.
	SpecPath string

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
