// Package jobs holds the background maintenance loops that run next to
// the HTTP server.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/bagvault/api/internal/repository"
	"github.com/bagvault/api/internal/storage"
)

const (
	// unverifiedRetention is how long a signup may sit unverified before
	// the row and its avatar object are reclaimed.
	unverifiedRetention = 24 * time.Hour
	sweepInterval       = time.Hour
	sweepTimeout        = 30 * time.Second
)

// Sweeper deletes accounts that never finished OTP verification. The
// avatar object is removed first so a failed row delete leaves another
// chance on the next tick rather than an orphaned object.
type Sweeper struct {
	Users   *repository.UserRepo
	Avatars *storage.Avatars
}

func NewSweeper(users *repository.UserRepo, avatars *storage.Avatars) *Sweeper {
	return &Sweeper{Users: users, Avatars: avatars}
}

// Run sweeps once immediately and then on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()

	stale, err := s.Users.ListUnverifiedBefore(ctx, time.Now().Add(-unverifiedRetention))
	if err != nil {
		log.Printf("sweeper: list unverified: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	ids := make([]uint64, 0, len(stale))
	for _, u := range stale {
		if u.AvatarURL.Valid && u.AvatarURL.String != "" {
			if err := s.Avatars.Delete(ctx, s.Avatars.KeyFromURL(u.AvatarURL.String)); err != nil {
				log.Printf("sweeper: delete avatar for user %d: %v", u.ID, err)
				continue
			}
		}
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return
	}
	n, err := s.Users.DeleteByIDs(ctx, ids)
	if err != nil {
		log.Printf("sweeper: delete users: %v", err)
		return
	}
	log.Printf("sweeper: removed %d unverified accounts", n)
}
