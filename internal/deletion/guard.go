// internal/deletion/guard.go
package deletion

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mantra-fm/backend/internal/logger"
)

// Guard prevents two concurrent deletion runs for the same user across
// replicas, using a redis SETNX marker with a TTL. The guard is best-effort:
// when redis is unreachable the operation proceeds unguarded.
type Guard struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewGuard(addr string, log *logger.Logger) (*Guard, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Guard{
		log: log.With("service", "DeletionGuard"),
		rdb: rdb,
		ttl: 5 * time.Minute,
	}, nil
}

func guardKey(userID uint) string {
	return fmt.Sprintf("deletion:user:%d", userID)
}

// Acquire marks the user as having a deletion in progress. Returns false
// when another run already holds the marker.
func (g *Guard) Acquire(ctx context.Context, userID uint) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, guardKey(userID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire deletion marker: %w", err)
	}
	return ok, nil
}

func (g *Guard) Release(ctx context.Context, userID uint) {
	if err := g.rdb.Del(ctx, guardKey(userID)).Err(); err != nil {
		g.log.Warn("failed to release deletion marker", "userID", userID, "error", err)
	}
}

func (g *Guard) Close() error {
	return g.rdb.Close()
}
