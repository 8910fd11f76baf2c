package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	pkgerrors "github.com/pkg/errors"

	"github.com/tradecove/marketplace-api/models"
)

const sessionCartTTL = 14 * 24 * time.Hour

// SessionCartStore keeps pre-login staging carts in redis, keyed by session
// token. Lines live here until the buyer authenticates, at which point they
// are merged into the durable cart and the key is dropped.
type SessionCartStore struct {
	client *redis.Client
}

func NewSessionCartStore(client *redis.Client) *SessionCartStore {
	return &SessionCartStore{client: client}
}

func (s *SessionCartStore) key(token string) string {
	return "session_cart:" + token
}

func (s *SessionCartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Lines returns the staged cart for a session token; missing key means an
// empty cart.
func (s *SessionCartStore) Lines(ctx context.Context, token string) ([]models.SessionCartLine, error) {
	data, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetch session cart")
	}
	var lines []models.SessionCartLine
	if err := json.Unmarshal([]byte(data), &lines); err != nil {
		return nil, pkgerrors.Wrap(err, "decode session cart")
	}
	return lines, nil
}

// SetLine adds or updates one staged line, refreshing the TTL.
func (s *SessionCartStore) SetLine(ctx context.Context, token string, productID uint, quantity int) error {
	lines, err := s.Lines(ctx, token)
	if err != nil {
		return err
	}
	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, models.SessionCartLine{ProductID: productID, Quantity: quantity})
	}
	return s.save(ctx, token, lines)
}

// RemoveLine drops one staged line; removing the last line deletes the key.
func (s *SessionCartStore) RemoveLine(ctx context.Context, token string, productID uint) error {
	lines, err := s.Lines(ctx, token)
	if err != nil {
		return err
	}
	out := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return s.Clear(ctx, token)
	}
	return s.save(ctx, token, out)
}

func (s *SessionCartStore) Clear(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return pkgerrors.Wrap(err, "clear session cart")
	}
	return nil
}

func (s *SessionCartStore) save(ctx context.Context, token string, lines []models.SessionCartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(err, "encode session cart")
	}
	if err := s.client.Set(ctx, s.key(token), data, sessionCartTTL).Err(); err != nil {
		return pkgerrors.Wrap(err, "store session cart")
	}
	return nil
}
