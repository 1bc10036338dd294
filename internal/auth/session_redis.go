package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"portal/internal/models"
)

// RedisSessions keeps each session under session:<id> holding the user id,
// with the key TTL as the session lifetime. Redis expires them by itself.
// user_sessions:<uid> lists a user's session ids so a new login can drop
// the older ones.
type RedisSessions struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client, now: time.Now}
}

func sessionKey(id string) string { return "session:" + id }

func userSessionsKey(userID int64) string { return "user_sessions:" + strconv.FormatInt(userID, 10) }

func (s *RedisSessions) Create(ctx context.Context, userID int64, lifetime time.Duration) (models.Session, error) {
	sess := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: s.now().Add(lifetime),
	}
	set := userSessionsKey(userID)
	old, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("list sessions: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range old {
			p.Del(ctx, sessionKey(id))
		}
		p.Del(ctx, set)
		p.Set(ctx, sessionKey(sess.ID), strconv.FormatInt(userID, 10), lifetime)
		p.SAdd(ctx, set, sess.ID)
		p.Expire(ctx, set, lifetime)
		return nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessions) Get(ctx context.Context, id string) (models.Session, error) {
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, sessionKey(id))
		ttl = p.PTTL(ctx, sessionKey(id))
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}

	uid, err := strconv.ParseInt(get.Val(), 10, 64)
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: bad user id %q", get.Val())
	}
	left := ttl.Val()
	if left <= 0 {
		return models.Session{}, ErrNoSession
	}
	return models.Session{ID: id, UserID: uid, ExpiresAt: s.now().Add(left)}, nil
}

func (s *RedisSessions) Delete(ctx context.Context, id string) error {
	uid, err := s.client.GetDel(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	userID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return nil
	}
	if err := s.client.SRem(ctx, userSessionsKey(userID), id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
