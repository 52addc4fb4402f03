package backend

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"fleet-report-builder/internal/model"
)

// Directory lists trackers and tracker groups.
type Directory interface {
	ListTrackers(ctx context.Context, sessionKey string) ([]model.Tracker, error)
	ListTrackerGroups(ctx context.Context, sessionKey string) ([]model.TrackerGroup, error)
}

// CachedDirectory memoizes successful directory lookups per session key.
// Failures are never cached.
type CachedDirectory struct {
	next  Directory
	store *cache.Cache
	ttl   time.Duration
}

// NewCachedDirectory wraps next with an in-memory cache.
func NewCachedDirectory(next Directory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (d *CachedDirectory) ListTrackers(ctx context.Context, sessionKey string) ([]model.Tracker, error) {
	key := "trackers:" + sessionKey
	if cached, found := d.store.Get(key); found {
		return append([]model.Tracker(nil), cached.([]model.Tracker)...), nil
	}
	trackers, err := d.next.ListTrackers(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	d.store.Set(key, append([]model.Tracker(nil), trackers...), d.ttl)
	return trackers, nil
}

func (d *CachedDirectory) ListTrackerGroups(ctx context.Context, sessionKey string) ([]model.TrackerGroup, error) {
	key := "groups:" + sessionKey
	if cached, found := d.store.Get(key); found {
		return append([]model.TrackerGroup(nil), cached.([]model.TrackerGroup)...), nil
	}
	groups, err := d.next.ListTrackerGroups(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	d.store.Set(key, append([]model.TrackerGroup(nil), groups...), d.ttl)
	return groups, nil
}

// Invalidate drops the cached entries of a session.
func (d *CachedDirectory) Invalidate(sessionKey string) {
	d.store.Delete("trackers:" + sessionKey)
	d.store.Delete("groups:" + sessionKey)
}
