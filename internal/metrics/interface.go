package metrics

import (
	"context"
	"net/http"
)

// Exporter publishes monitor readings for Prometheus to scrape.
type Exporter interface {
	// Start begins serving. The listen socket is bound before it returns.
	Start() error
	// Close shuts the server down, waiting for in-flight scrapes until ctx
	// expires.
	Close(ctx context.Context) error
	// Handler serves the metrics, health and index pages.
	Handler() http.Handler
	// Addr returns the bound address once started.
	Addr() string
}
