package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"fleet-report-builder/internal/store"
	"fleet-report-builder/internal/wizard"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	deps     wizard.Deps
	sessions *Sessions
	log      zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, deps wizard.Deps, sessions *Sessions) *Handler {
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		deps:     deps,
		sessions: sessions,
		log:      deps.Log.With().Str("component", "api").Logger(),
	}
}
