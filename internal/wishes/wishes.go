// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package wishes implements the birthday guestbook on Redis.
//
// Each wish is a hash at wish:<id>; the sorted set "wishes" orders ids by
// creation time in milliseconds.
package wishes

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/ManuGH/partybooth/internal/sanitize"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	indexKey  = "wishes"
	keyPrefix = "wish:"
)

// Length caps, in runes, applied after sanitising.
const (
	MaxName    = 60
	MaxMessage = 1000
)

var (
	// ErrNotFound is returned when liking an unknown wish.
	ErrNotFound = errors.New("wishes: wish not found")
	// ErrInvalid classifies validation failures.
	ErrInvalid = errors.New("wishes: invalid wish")
)

// ValidationError carries a message safe to show to guests.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Wish is a guestbook entry.
type Wish struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
	Likes     int64  `json:"likes"`
}

// likeScript increments likes only on an existing wish.
var likeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], 'likes', 1)
`)

// Store reads and writes wishes.
type Store struct {
	client redis.UniversalClient
	now    func() time.Time
	suffix func() string
	logger zerolog.Logger
}

// NewStore wraps client. The client is owned by the caller.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
		now:    time.Now,
		suffix: func() string { return strconv.FormatUint(rand.Uint64(), 36) },
		logger: log.WithComponent("wishes"),
	}
}

func wishKey(id string) string { return keyPrefix + id }

// List returns all wishes, newest first. Index entries whose hash is gone are skipped.
func (s *Store) List(ctx context.Context) ([]Wish, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		metrics.RecordWishOp("list", err)
		return nil, fmt.Errorf("wishes: list index: %w", err)
	}
	if len(ids) == 0 {
		metrics.RecordWishOp("list", nil)
		return []Wish{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, wishKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordWishOp("list", err)
		return nil, fmt.Errorf("wishes: load: %w", err)
	}

	out := make([]Wish, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, fromHash(fields))
	}
	metrics.RecordWishOp("list", nil)
	return out, nil
}

func fromHash(h map[string]string) Wish {
	createdAt, _ := strconv.ParseInt(h["createdAt"], 10, 64)
	likes, _ := strconv.ParseInt(h["likes"], 10, 64)
	return Wish{
		ID:        h["id"],
		Name:      h["name"],
		Message:   h["message"],
		CreatedAt: createdAt,
		Likes:     likes,
	}
}

// Add validates and stores a new wish.
func (s *Store) Add(ctx context.Context, name, message string) (Wish, error) {
	name = sanitize.Line(name, MaxName)
	message = sanitize.Text(message, MaxMessage)
	if name == "" || message == "" {
		return Wish{}, &ValidationError{Message: "Name and message are required and must be strings."}
	}

	createdAt := s.now().UnixMilli()
	w := Wish{
		ID:        fmt.Sprintf("%d-%s", createdAt, s.suffix()),
		Name:      name,
		Message:   message,
		CreatedAt: createdAt,
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, wishKey(w.ID),
			"id", w.ID,
			"name", w.Name,
			"message", w.Message,
			"createdAt", strconv.FormatInt(w.CreatedAt, 10),
			"likes", "0",
		)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(createdAt), Member: w.ID})
		return nil
	})
	metrics.RecordWishOp("add", err)
	if err != nil {
		return Wish{}, fmt.Errorf("wishes: add: %w", err)
	}

	lg := log.WithContext(ctx, s.logger)
	lg.Info().
		Str(log.FieldEvent, "wish.added").
		Str(log.FieldWishID, w.ID).
		Msg("wish added")
	return w, nil
}

// Like increments the like counter of a wish and returns the new total.
func (s *Store) Like(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, &ValidationError{Message: "A wish ID is required."}
	}
	n, err := likeScript.Run(ctx, s.client, []string{wishKey(id)}).Int64()
	if err != nil {
		metrics.RecordWishOp("like", err)
		return 0, fmt.Errorf("wishes: like: %w", err)
	}
	if n < 0 {
		metrics.RecordWishOp("like", ErrNotFound)
		return 0, ErrNotFound
	}
	metrics.RecordWishOp("like", nil)
	return n, nil
}
