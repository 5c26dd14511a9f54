package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stfc-quiz-service/internal/app"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Notes:
//   - Attempts themselves stay in a local map so subscribers keep working
//     in-process.
//   - Each save writes a progress snapshot (quiz, phase, cursor, answers) under
//     stfc:attempt:{id} with a TTL, which gives operators a shared view of live
//     attempts. Writes are best effort.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	log      *zap.Logger
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *AttemptStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		log:      log,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Put(attempt *app.Attempt) {
	s.mu.Lock()
	s.attempts[attempt.ID()] = attempt
	s.mu.Unlock()
	s.Save(attempt.Progress())
}

func (s *AttemptStore) Get(attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

// Save writes the progress snapshot. It runs under the attempt lock, so it
// must not call back into the attempt or take the store lock.
func (s *AttemptStore) Save(progress app.Progress) {
	data, err := json.Marshal(progress)
	if err == nil {
		err = s.client.Set(context.Background(), attemptKey(progress.AttemptID), data, s.ttl).Err()
	}
	if err != nil {
		s.log.Warn("attempt snapshot failed", zap.String("attempt_id", progress.AttemptID), zap.Error(err))
	}
}

func (s *AttemptStore) Delete(attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	s.mu.Unlock()
	if err := s.client.Del(context.Background(), attemptKey(attemptID)).Err(); err != nil {
		s.log.Warn("attempt snapshot delete failed", zap.String("attempt_id", attemptID), zap.Error(err))
	}
}

func (s *AttemptStore) Range(fn func(*app.Attempt) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attempt := range s.attempts {
		if !fn(attempt) {
			return
		}
	}
}

// Snapshot reads the stored progress of an attempt.
func (s *AttemptStore) Snapshot(ctx context.Context, attemptID string) (app.Progress, error) {
	var progress app.Progress
	raw, err := s.client.Get(ctx, attemptKey(attemptID)).Bytes()
	if err != nil {
		return progress, err
	}
	err = json.Unmarshal(raw, &progress)
	return progress, err
}

func attemptKey(attemptID string) string {
	return keyPrefix + "attempt:" + attemptID
}
