package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Availability reports whether every requested line can be fulfilled, and
// which product ids cannot, in request order.
type Availability struct {
	Available      bool
	UnavailableIDs []uuid.UUID
}

// DecrementResult reports whether the stock decrement committed.
type DecrementResult struct {
	Success bool
}

// decrementScript checks every line before touching any counter, so a
// decrement either applies to all lines or to none. A missing key counts
// as zero stock.
var decrementScript = redis.NewScript(`
for i = 1, #KEYS do
  local current = tonumber(redis.call("GET", KEYS[i]) or "0")
  if current < tonumber(ARGV[i]) then
    return 0
  end
end
for i = 1, #KEYS do
  redis.call("DECRBY", KEYS[i], ARGV[i])
end
return 1
`)

// RedisStore keeps per-product stock counters in Redis. It owns its
// representation; callers only see the Availability/Decrement contracts.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func (s *RedisStore) key(id uuid.UUID) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "stock:"
	}
	return prefix + id.String()
}

// CheckAvailability reports overall availability plus the unavailable
// product ids in request order.
func (s *RedisStore) CheckAvailability(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (Availability, error) {
	if s == nil || s.Client == nil {
		return Availability{}, errors.New("inventory: redis client not configured")
	}
	if len(productIDs) != len(qtys) {
		return Availability{}, fmt.Errorf("inventory: %d ids but %d quantities", len(productIDs), len(qtys))
	}

	pipe := s.Client.Pipeline()
	cmds := make([]*redis.StringCmd, len(productIDs))
	for i, id := range productIDs {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Availability{}, fmt.Errorf("inventory: read stock: %w", err)
	}

	result := Availability{Available: true}
	for i, cmd := range cmds {
		var current int64
		raw, err := cmd.Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = 0
		case err != nil:
			return Availability{}, fmt.Errorf("inventory: read stock for %s: %w", productIDs[i], err)
		default:
			current, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Availability{}, fmt.Errorf("inventory: corrupt stock value for %s: %w", productIDs[i], err)
			}
		}
		if current < qtys[i] {
			result.Available = false
			result.UnavailableIDs = append(result.UnavailableIDs, productIDs[i])
		}
	}
	return result, nil
}

// Decrement atomically removes the requested quantities. When any line
// lacks stock nothing is decremented and Success is false.
func (s *RedisStore) Decrement(ctx context.Context, productIDs []uuid.UUID, qtys []int64) (DecrementResult, error) {
	if s == nil || s.Client == nil {
		return DecrementResult{}, errors.New("inventory: redis client not configured")
	}
	if len(productIDs) != len(qtys) {
		return DecrementResult{}, fmt.Errorf("inventory: %d ids but %d quantities", len(productIDs), len(qtys))
	}
	if len(productIDs) == 0 {
		return DecrementResult{Success: true}, nil
	}

	keys := make([]string, len(productIDs))
	args := make([]any, len(qtys))
	for i, id := range productIDs {
		keys[i] = s.key(id)
		args[i] = qtys[i]
	}
	ok, err := decrementScript.Run(ctx, s.Client, keys, args...).Int()
	if err != nil {
		return DecrementResult{}, fmt.Errorf("inventory: decrement stock: %w", err)
	}
	return DecrementResult{Success: ok == 1}, nil
}

// SetStock seeds or resets the counter for a product.
func (s *RedisStore) SetStock(ctx context.Context, productID uuid.UUID, qty int64) error {
	if s == nil || s.Client == nil {
		return errors.New("inventory: redis client not configured")
	}
	return s.Client.Set(ctx, s.key(productID), qty, 0).Err()
}

// Stock returns the current counter for a product, zero when absent.
func (s *RedisStore) Stock(ctx context.Context, productID uuid.UUID) (int64, error) {
	if s == nil || s.Client == nil {
		return 0, errors.New("inventory: redis client not configured")
	}
	raw, err := s.Client.Get(ctx, s.key(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
