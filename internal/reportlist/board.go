// Package reportlist is the read model of previously generated reports.
package reportlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
)

// DefaultHighlight is how long a freshly generated report stays highlighted.
const DefaultHighlight = 2 * time.Second

// Lister fetches report records of an owner.
type Lister interface {
	ListReports(ctx context.Context, ownerID, sessionKey string) ([]model.ReportRecord, error)
}

// Entry is a listed report and whether it is currently highlighted.
type Entry struct {
	model.ReportRecord
	Highlighted bool `json:"highlighted"`
}

// Board holds the report list of one owner. It is safe for concurrent use.
type Board struct {
	lister     Lister
	ownerID    string
	sessionKey string
	highlight  time.Duration
	log        zerolog.Logger

	mu          sync.Mutex
	records     []model.ReportRecord
	highlighted int64
	hasHigh     bool
	timer       *time.Timer
	generation  uint64
}

func NewBoard(lister Lister, ownerID, sessionKey string, highlight time.Duration, log zerolog.Logger) *Board {
	if highlight <= 0 {
		highlight = DefaultHighlight
	}
	return &Board{
		lister:     lister,
		ownerID:    ownerID,
		sessionKey: sessionKey,
		highlight:  highlight,
		log:        log.With().Str("component", "reportlist").Str("owner", ownerID).Logger(),
	}
}

// Refresh reloads the list. A malformed response empties the list instead
// of failing; any other error leaves the previous list in place.
func (b *Board) Refresh(ctx context.Context) error {
	records, err := b.lister.ListReports(ctx, b.ownerID, b.sessionKey)
	if err != nil {
		if !errors.Is(err, errs.ErrMalformedResponse) {
			return err
		}
		b.log.Warn().Err(err).Msg("malformed reports list, showing none")
		records = nil
	}

	b.mu.Lock()
	b.records = append([]model.ReportRecord(nil), records...)
	b.mu.Unlock()
	return nil
}

// ReportGenerated refreshes the list and highlights the new report. It
// implements dispatch.Listener.
func (b *Board) ReportGenerated(ctx context.Context, event dispatch.GeneratedEvent) {
	if event.OwnerID != b.ownerID {
		return
	}
	if err := b.Refresh(ctx); err != nil {
		b.log.Warn().Err(err).Msg("failed to refresh reports after generation")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pick(event.ReportID)
	if !ok {
		return
	}
	b.highlightLocked(id)
}

func (b *Board) pick(reportID *int64) (int64, bool) {
	if reportID != nil {
		return *reportID, true
	}
	var newest *model.ReportRecord
	for i := range b.records {
		r := &b.records[i]
		if newest == nil || r.GeneratedAt.After(newest.GeneratedAt) ||
			(r.GeneratedAt.Equal(newest.GeneratedAt) && r.ID > newest.ID) {
			newest = r
		}
	}
	if newest == nil {
		return 0, false
	}
	return newest.ID, true
}

// highlightLocked supersedes any pending clear with a new one.
func (b *Board) highlightLocked(id int64) {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.generation++
	gen := b.generation
	b.highlighted = id
	b.hasHigh = true
	b.timer = time.AfterFunc(b.highlight, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.generation != gen {
			return
		}
		b.hasHigh = false
		b.timer = nil
	})
}

// Highlighted returns the id of the highlighted report, if any.
func (b *Board) Highlighted() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highlighted, b.hasHigh
}

func (b *Board) Records() []model.ReportRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ReportRecord(nil), b.records...)
}

func (b *Board) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := make([]Entry, 0, len(b.records))
	for _, r := range b.records {
		entries = append(entries, Entry{
			ReportRecord: r,
			Highlighted:  b.hasHigh && r.ID == b.highlighted,
		})
	}
	return entries
}

// Close stops a pending highlight clear.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.generation++
	b.hasHigh = false
}
