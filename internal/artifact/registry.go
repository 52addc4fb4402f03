// Package artifact keeps generated report files in memory until they are
// released or expire.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"fleet-report-builder/internal/model"
)

var ErrNotFound = errors.New("artifact not found")

// Registry stores artifacts by id. It is safe for concurrent use.
type Registry struct {
	items *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry creates a registry whose entries expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		items: cache.New(ttl, ttl/2+time.Second),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create registers a new artifact and returns a handle to it.
func (r *Registry) Create(title, fileName, mimeType string, data []byte, reportID *int64) *model.GeneratedArtifact {
	a := &model.GeneratedArtifact{
		ID:        uuid.New(),
		ReportID:  reportID,
		Title:     title,
		FileName:  fileName,
		MimeType:  mimeType,
		Bytes:     data,
		Size:      len(data),
		CreatedAt: r.now().UTC(),
	}
	r.items.Set(a.ID.String(), a, r.ttl)
	return a
}

func (r *Registry) Get(id uuid.UUID) (*model.GeneratedArtifact, error) {
	item, found := r.items.Get(id.String())
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return item.(*model.GeneratedArtifact), nil
}

// Release drops the artifact. Releasing nil or an unknown artifact is a no-op.
func (r *Registry) Release(a *model.GeneratedArtifact) {
	if a == nil {
		return
	}
	r.items.Delete(a.ID.String())
}

// Len returns the number of live artifacts.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}
