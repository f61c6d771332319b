package store

import (
	"context"
	"time"
)

// Watch polls the revision counter every interval and calls onChange when
// another writer has changed the store. It returns nil once ctx is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration, onChange func()) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := s.Poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Warn(ctx, "revision poll failed", "err", err)
				continue
			}
			if changed {
				onChange()
			}
		}
	}
}

// Poll reports whether the store changed since the last write or poll made
// by this Store.
func (s *Store) Poll(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.Revision(ctx)
	if err != nil {
		return false, err
	}
	if rev == s.seen {
		return false, nil
	}
	s.seen = rev
	return true, nil
}
