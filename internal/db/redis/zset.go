package redis

import (
	"context"
	"strconv"

	"github.com/omnirecall/omnirecall/internal/db"
)

// ZAdd adds members with scores to a sorted set.
func (s *Store) ZAdd(ctx context.Context, key string, items []db.ZAddItem) error {
	if len(items) == 0 {
		return nil
	}
	builder := s.b().Zadd().Key(key).ScoreMember()
	for _, item := range items {
		builder = builder.ScoreMember(item.Score, item.Member)
	}
	if err := s.do(ctx, builder.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRevRange returns members by score descending, [start, stop] inclusive.
func (s *Store) ZRevRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	cmd := s.b().Zrange().Key(key).Min(strconv.Itoa(start)).Max(strconv.Itoa(stop)).Rev().Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRange, Err: err}
	}
	return members, nil
}

// ZRange returns members by score ascending, [start, stop] inclusive.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	cmd := s.b().Zrange().Key(key).Min(strconv.Itoa(start)).Max(strconv.Itoa(stop)).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}
	return members, nil
}

// ZRem removes members from a sorted set. Absent members are tolerated.
func (s *Store) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zrem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}
