// Package cache provides a read-through cache in front of the collection repository.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.CollectionRepository = (*CachingRepository)(nil)

// CachingRepository serves GetByID from a bounded LRU of collections. Every
// write goes to the wrapped repository first and then refreshes the entry. A
// read that missed never replaces a newer entry, nor fills the cache after a
// write landed while it was reading, so the cache never holds a version older
// than the last successful write made through it. List always reads through.
type CachingRepository struct {
	next  domain.CollectionRepository
	cache *lru.Cache[string, domain.DocumentCollection]

	mu sync.Mutex
	// writes counts writes and evictions; a miss only fills the cache if it
	// did not change during the read.
	writes uint64
}

func NewCachingRepository(next domain.CollectionRepository, size int) (*CachingRepository, error) {
	c, err := lru.New[string, domain.DocumentCollection](size)
	if err != nil {
		return nil, fmt.Errorf("creating collection cache: %w", err)
	}
	return &CachingRepository{next: next, cache: c}, nil
}

func (r *CachingRepository) Create(ctx context.Context, c domain.DocumentCollection) error {
	if err := r.next.Create(ctx, c); err != nil {
		return err
	}
	// Drop any stale entry; the next read loads the stored row.
	r.evict(c.ID)
	return nil
}

func (r *CachingRepository) GetByID(ctx context.Context, id string) (domain.DocumentCollection, error) {
	if c, ok := r.cache.Get(id); ok {
		return clone(c), nil
	}

	r.mu.Lock()
	gen := r.writes
	r.mu.Unlock()

	c, err := r.next.GetByID(ctx, id)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	r.fill(c, gen)
	return c, nil
}

func (r *CachingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentCollection, error) {
	return r.next.List(ctx, filter)
}

func (r *CachingRepository) Update(ctx context.Context, id string, mutate func(*domain.DocumentCollection) error) (domain.DocumentCollection, error) {
	c, err := r.next.Update(ctx, id, mutate)
	if err != nil {
		// A lost compare-and-set means another writer changed the row.
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			r.evict(id)
		}
		return domain.DocumentCollection{}, err
	}

	r.mu.Lock()
	r.writes++
	r.addIfNewer(c)
	r.mu.Unlock()
	return c, nil
}

// fill caches a collection read on a miss that started at generation gen.
func (r *CachingRepository) fill(c domain.DocumentCollection, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache.Peek(c.ID); !ok && r.writes != gen {
		return
	}
	r.addIfNewer(c)
}

// addIfNewer stores c unless the cache already holds the same or a later
// version. r.mu must be held.
func (r *CachingRepository) addIfNewer(c domain.DocumentCollection) {
	if cached, ok := r.cache.Peek(c.ID); ok && cached.Version >= c.Version {
		return
	}
	r.cache.Add(c.ID, clone(c))
}

func (r *CachingRepository) evict(id string) {
	r.mu.Lock()
	r.writes++
	r.cache.Remove(id)
	r.mu.Unlock()
}

// Len reports the number of cached collections.
func (r *CachingRepository) Len() int {
	return r.cache.Len()
}

func clone(c domain.DocumentCollection) domain.DocumentCollection {
	c.Documents = slices.Clone(c.Documents)
	c.SenderAppendices = slices.Clone(c.SenderAppendices)
	c.Fields = slices.Clone(c.Fields)
	if c.Signers != nil {
		signers := make([]domain.Signer, len(c.Signers))
		for i, s := range c.Signers {
			s.Appendices = slices.Clone(s.Appendices)
			s.Fields = slices.Clone(s.Fields)
			signers[i] = s
		}
		c.Signers = signers
	}
	return c
}
