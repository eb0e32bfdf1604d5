package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autovideo/api/internal/model"
)

const jobIndexKey = "jobs:index"

// RedisStore keeps jobs as JSON values with a TTL and a sorted index for listing
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *RedisStore) Save(ctx context.Context, job *model.JobRecord) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, s.ttl)
	pipe.ZAdd(ctx, jobIndexKey, redis.Z{
		Score:  float64(job.CreatedAt.UnixNano()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var job model.JobRecord
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*model.JobRecord, error) {
	ids, err := s.redis.ZRevRange(ctx, jobIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}
	if len(ids) == 0 {
		return []*model.JobRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}

	jobs := make([]*model.JobRecord, 0, len(values))
	var expired []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var job model.JobRecord
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", ids[i], err)
		}
		jobs = append(jobs, &job)
	}

	// Expired values leave stale index members behind
	if len(expired) > 0 {
		s.redis.ZRem(ctx, jobIndexKey, expired...)
	}

	sortRecent(jobs)
	return jobs, nil
}

func (s *RedisStore) Update(ctx context.Context, job *model.JobRecord) error {
	job.UpdatedAt = s.now()
	return s.Save(ctx, job)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.redis.ZRange(ctx, jobIndexKey, 0, -1).Result()
	if err != nil {
		return err
	}
	keys := []string{jobIndexKey}
	for _, id := range ids {
		keys = append(keys, jobKey(id))
	}
	return s.redis.Del(ctx, keys...).Err()
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}
