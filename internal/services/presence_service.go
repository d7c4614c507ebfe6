package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	presenceKeyPrefix = "user:presence:"
	lastSeenKeyPrefix = "user:lastseen:"
	onlineMarker      = "online"

	DefaultPresenceTTL = 5 * time.Minute
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	// StatusUnknown is reported when the presence store cannot be reached.
	StatusUnknown PresenceStatus = "unknown"
)

type Presence struct {
	Username string
	Status   PresenceStatus
	LastSeen *time.Time
}

// PresenceService tracks who is connected using expiring Redis keys.
// Markers expire on their own; a live session keeps refreshing its marker.
type PresenceService struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewPresenceService(rdb *redis.Client, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &PresenceService{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *PresenceService) TTL() time.Duration { return s.ttl }

// MarkOnline sets or refreshes the online marker. Last-seen is left as
// recorded by the previous MarkOffline.
func (s *PresenceService) MarkOnline(ctx context.Context, username string) error {
	return s.rdb.Set(ctx, presenceKeyPrefix+username, onlineMarker, s.ttl).Err()
}

// MarkOffline clears the marker immediately and records last-seen.
func (s *PresenceService) MarkOffline(ctx context.Context, username string) error {
	now := s.now()
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, presenceKeyPrefix+username)
		p.Set(ctx, lastSeenKeyPrefix+username, now.UnixMilli(), 0)
		return nil
	})
	return err
}

func (s *PresenceService) IsOnline(ctx context.Context, username string) (bool, error) {
	n, err := s.rdb.Exists(ctx, presenceKeyPrefix+username).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetLastSeen returns when the user was last seen, or nil when the user is
// online right now or has never been tracked.
func (s *PresenceService) GetLastSeen(ctx context.Context, username string) (*time.Time, error) {
	online, lastSeen, err := s.lookup(ctx, username)
	if err != nil || online {
		return nil, err
	}
	return lastSeen, nil
}

// GetPresence never fails: store errors degrade to StatusUnknown.
func (s *PresenceService) GetPresence(ctx context.Context, username string) Presence {
	online, lastSeen, err := s.lookup(ctx, username)
	if err != nil {
		log.Warningf("presence lookup for %s failed: %v", username, err)
		return Presence{Username: username, Status: StatusUnknown}
	}
	if online {
		return Presence{Username: username, Status: StatusOnline}
	}
	return Presence{Username: username, Status: StatusOffline, LastSeen: lastSeen}
}

// GetAllPresence enumerates current online markers. The view is not a
// snapshot: markers may expire while the scan runs.
func (s *PresenceService) GetAllPresence(ctx context.Context) (map[string]Presence, error) {
	result := make(map[string]Presence)
	iter := s.rdb.Scan(ctx, 0, presenceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		username := strings.TrimPrefix(iter.Val(), presenceKeyPrefix)
		result[username] = Presence{Username: username, Status: StatusOnline}
	}
	if err := iter.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (s *PresenceService) lookup(ctx context.Context, username string) (bool, *time.Time, error) {
	var exists *redis.IntCmd
	var seen *redis.StringCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		exists = p.Exists(ctx, presenceKeyPrefix+username)
		seen = p.Get(ctx, lastSeenKeyPrefix+username)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, nil, err
	}
	if exists.Val() > 0 {
		return true, nil, nil
	}

	raw, err := seen.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return false, &t, nil
}
