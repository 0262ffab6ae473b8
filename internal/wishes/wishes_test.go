// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package wishes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewStore(client)
	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	n := 0
	s.suffix = func() string {
		n++
		return strings.Repeat("x", n)
	}
	return mr, s
}

func TestStore_AddAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	mr, s := newTestStore(t)

	first, err := s.Add(ctx, "  Ana ", "Happy birthday!")
	require.NoError(t, err)
	second, err := s.Add(ctx, "Ben", "<b>Sweet</b> sixteen")
	require.NoError(t, err)

	assert.Equal(t, "1700000001000-x", first.ID)
	assert.Equal(t, "Ana", first.Name)
	assert.Equal(t, "Sweet sixteen", second.Message)

	got, err := s.List(ctx)
	require.NoError(t, err)
	want := []Wish{
		{ID: "1700000002000-xx", Name: "Ben", Message: "Sweet sixteen", CreatedAt: 1_700_000_002_000},
		{ID: "1700000001000-x", Name: "Ana", Message: "Happy birthday!", CreatedAt: 1_700_000_001_000},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "0", mr.HGet("wish:"+first.ID, "likes"))
	score, err := mr.ZScore(indexKey, first.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1_700_000_001_000), score)
}

func TestStore_ListEmpty(t *testing.T) {
	_, s := newTestStore(t)
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ListSkipsMissingHashes(t *testing.T) {
	ctx := context.Background()
	mr, s := newTestStore(t)

	w, err := s.Add(ctx, "Ana", "hi")
	require.NoError(t, err)
	_, err = mr.ZAdd(indexKey, 1, "ghost")
	require.NoError(t, err)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, w.ID, got[0].ID)
}

func TestStore_AddValidation(t *testing.T) {
	_, s := newTestStore(t)
	tests := []struct {
		name, who, msg string
	}{
		{name: "missing name", who: "", msg: "hi"},
		{name: "missing message", who: "Ana", msg: "   "},
		{name: "markup only", who: "<i></i>", msg: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(context.Background(), tt.who, tt.msg)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, "Name and message are required and must be strings.", err.Error())
		})
	}
}

func TestStore_AddCapsLength(t *testing.T) {
	_, s := newTestStore(t)
	w, err := s.Add(context.Background(), strings.Repeat("n", 200), strings.Repeat("m", 5000))
	require.NoError(t, err)
	assert.Len(t, w.Name, MaxName)
	assert.Len(t, w.Message, MaxMessage)
}

func TestStore_Like(t *testing.T) {
	ctx := context.Background()
	_, s := newTestStore(t)

	w, err := s.Add(ctx, "Ana", "hi")
	require.NoError(t, err)

	n, err := s.Like(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Like(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0].Likes)
}

func TestStore_LikeUnknown(t *testing.T) {
	mr, s := newTestStore(t)

	_, err := s.Like(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("wish:nope"), "liking must not create a hash")

	_, err = s.Like(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestStore_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(client)
	mr.Close()

	_, err = s.List(context.Background())
	assert.Error(t, err)
	_, err = s.Add(context.Background(), "Ana", "hi")
	assert.Error(t, err)
}
