// Package stock holds the in-memory room type inventory snapshot.  The
// snapshot is read on every booking without locks and is only ever replaced
// as a whole.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Loader fetches capacity and total stock for every room type.
type Loader interface {
	LoadRoomTypeStock(ctx context.Context) ([]model.RoomTypeSnapshot, error)
}

type snapshot map[uint64]model.RoomTypeSnapshot

// Cache serves lock-free reads from an immutable snapshot.
type Cache struct {
	loader Loader
	cur    atomic.Pointer[snapshot]
}

// ErrEmptyInventory is returned when the loader yields no room types.
var ErrEmptyInventory = errors.New("stock: no room types loaded")

// sleep is swapped in tests to avoid real backoff waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Load builds a Cache, retrying the loader up to attempts times with a fixed
// backoff between tries.  The last error is returned when every try fails
// and the caller is expected to abort startup.
func Load(ctx context.Context, loader Loader, attempts int, backoff time.Duration) (*Cache, error) {
	if attempts < 1 {
		attempts = 1
	}
	c := &Cache{loader: loader}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = c.Reload(ctx); err == nil {
			return c, nil
		}
		log.Printf("stock: load attempt %d/%d failed: %v", i, attempts, err)
		if i == attempts {
			break
		}
		if serr := sleep(ctx, backoff); serr != nil {
			return nil, serr
		}
	}
	return nil, fmt.Errorf("stock: load failed after %d attempts: %w", attempts, err)
}

// NewStatic returns a Cache over a fixed set of room types.  Reload on a
// static cache is a no-op.
func NewStatic(items ...model.RoomTypeSnapshot) *Cache {
	c := &Cache{}
	s := make(snapshot, len(items))
	for _, it := range items {
		s[it.RoomTypeID] = it
	}
	c.cur.Store(&s)
	return c
}

// Get returns the snapshot for a room type.
func (c *Cache) Get(roomTypeID uint64) (model.RoomTypeSnapshot, bool) {
	s := c.cur.Load()
	if s == nil {
		return model.RoomTypeSnapshot{}, false
	}
	v, ok := (*s)[roomTypeID]
	return v, ok
}

// Len reports the number of room types in the current snapshot.
func (c *Cache) Len() int {
	s := c.cur.Load()
	if s == nil {
		return 0
	}
	return len(*s)
}

// Reload fetches a fresh snapshot and swaps it in.  On error the previous
// snapshot stays in place.
func (c *Cache) Reload(ctx context.Context) error {
	if c.loader == nil {
		return nil
	}
	items, err := c.loader.LoadRoomTypeStock(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrEmptyInventory
	}
	s := make(snapshot, len(items))
	for _, it := range items {
		s[it.RoomTypeID] = it
	}
	c.cur.Store(&s)
	return nil
}
