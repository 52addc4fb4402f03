package api

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"fleet-report-builder/internal/wizard"
)

var errSessionNotFound = errors.New("wizard not found")

// Sessions keeps live wizards. Idle wizards expire after the TTL and have
// their artifacts released.
type Sessions struct {
	items *cache.Cache
	ttl   time.Duration
}

func NewSessions(ttl time.Duration) *Sessions {
	items := cache.New(ttl, time.Minute)
	items.OnEvicted(func(_ string, v interface{}) {
		if c, ok := v.(*wizard.Controller); ok {
			c.Close()
		}
	})
	return &Sessions{items: items, ttl: ttl}
}

func (s *Sessions) Add(c *wizard.Controller) {
	s.items.Set(c.ID().String(), c, s.ttl)
}

// Get returns the wizard if it exists and belongs to ownerID. Each access
// extends its lifetime.
func (s *Sessions) Get(id, ownerID string) (*wizard.Controller, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, errSessionNotFound
	}
	v, found := s.items.Get(parsed.String())
	if !found {
		return nil, errSessionNotFound
	}
	c := v.(*wizard.Controller)
	if c.Principal().OwnerID != ownerID {
		return nil, errSessionNotFound
	}
	s.items.Set(parsed.String(), c, s.ttl)
	return c, nil
}

// Remove closes and forgets the wizard.
func (s *Sessions) Remove(c *wizard.Controller) {
	s.items.Delete(c.ID().String())
}

func (s *Sessions) Len() int {
	return s.items.ItemCount()
}
