package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	redisclient "github.com/phoenixclinic/bookingcore/internal/infrastructure/clients/redis"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

const (
	readyKey      = "q:booking"
	processingKey = "q:booking:processing"
	delayedKey    = "q:booking:delayed"
	dedupSetKey   = "q:booking:dedup"
	dedupTTLKey   = "dedup:ttl:"
)

// RedisQueue implements the JobQueue interface on Redis lists. Ready
// jobs live on a list, dequeue moves them to a processing list in one
// step, and delayed requeues sit in a sorted set scored by their due
// time until promoted.
type RedisQueue struct {
	client   *redisclient.Client
	dedupTTL time.Duration
}

// NewRedisQueue creates a new Redis-backed job queue
func NewRedisQueue(client *redisclient.Client, dedupTTL time.Duration) providers.JobQueue {
	return &RedisQueue{
		client:   client,
		dedupTTL: dedupTTL,
	}
}

// Enqueue appends a job unless its dedup key is already pending. The
// membership set is paired with a per-key expiring guard so a key
// orphaned by a crash cannot block resubmission forever.
func (q *RedisQueue) Enqueue(ctx context.Context, job *entities.Job) (bool, error) {
	rdb := q.client.Client()

	if job.DedupKey != "" {
		guardLive, err := rdb.Exists(ctx, dedupTTLKey+job.DedupKey).Result()
		if err != nil {
			return false, apperrors.NewStoreUnavailableError("checking dedup guard", err)
		}
		if guardLive == 0 {
			// Guard expired: the membership entry, if any, is stale.
			if err := rdb.SRem(ctx, dedupSetKey, job.DedupKey).Err(); err != nil {
				return false, apperrors.NewStoreUnavailableError("clearing stale dedup key", err)
			}
		}

		added, err := rdb.SAdd(ctx, dedupSetKey, job.DedupKey).Result()
		if err != nil {
			return false, apperrors.NewStoreUnavailableError("adding dedup key", err)
		}
		if added == 0 {
			return true, nil
		}
		if err := rdb.Set(ctx, dedupTTLKey+job.DedupKey, "1", q.dedupTTL).Err(); err != nil {
			return false, apperrors.NewStoreUnavailableError("setting dedup guard", err)
		}
	}

	job.Status = entities.JobStatusQueued
	payload, err := json.Marshal(job)
	if err != nil {
		return false, apperrors.NewInternalError("marshalling job", err)
	}

	if err := rdb.RPush(ctx, readyKey, payload).Err(); err != nil {
		return false, apperrors.NewStoreUnavailableError("enqueuing job", err)
	}
	return false, nil
}

// Dequeue blocks for the next ready job and moves it to the processing
// list. A malformed payload is removed from the processing list and
// logged rather than poisoning the consumer.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*entities.Job, error) {
	rdb := q.client.Client()

	raw, err := rdb.BRPopLPush(ctx, readyKey, processingKey, timeout).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewStoreUnavailableError("dequeuing job", err)
	}

	var job entities.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Str("payload", raw).Msg("dropping malformed job payload")
		if remErr := rdb.LRem(ctx, processingKey, 1, raw).Err(); remErr != nil {
			return nil, apperrors.NewStoreUnavailableError("removing malformed job", remErr)
		}
		return nil, nil
	}

	job.Status = entities.JobStatusInFlight
	job.Raw = []byte(raw)
	return &job, nil
}

// Ack removes the job from the processing list by its original bytes
// and releases the dedup key.
func (q *RedisQueue) Ack(ctx context.Context, job *entities.Job) error {
	rdb := q.client.Client()

	if len(job.Raw) == 0 {
		return apperrors.NewInternalError("acking job without original payload", nil)
	}
	if err := rdb.LRem(ctx, processingKey, 1, string(job.Raw)).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("removing job from processing", err)
	}
	if job.DedupKey != "" {
		if err := rdb.SRem(ctx, dedupSetKey, job.DedupKey).Err(); err != nil {
			return apperrors.NewStoreUnavailableError("releasing dedup key", err)
		}
		if err := rdb.Del(ctx, dedupTTLKey+job.DedupKey).Err(); err != nil {
			return apperrors.NewStoreUnavailableError("releasing dedup guard", err)
		}
	}
	return nil
}

// Requeue pulls the job off the processing list and parks it in the
// delayed set until its backoff elapses. The dedup key stays held so
// clients cannot double-submit while a retry is pending.
func (q *RedisQueue) Requeue(ctx context.Context, job *entities.Job, delay time.Duration) error {
	rdb := q.client.Client()

	if len(job.Raw) == 0 {
		return apperrors.NewInternalError("requeuing job without original payload", nil)
	}
	if err := rdb.LRem(ctx, processingKey, 1, string(job.Raw)).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("removing job from processing", err)
	}

	job.Status = entities.JobStatusQueued
	payload, err := json.Marshal(job)
	if err != nil {
		return apperrors.NewInternalError("marshalling job", err)
	}

	due := time.Now().Add(delay)
	if err := rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return apperrors.NewStoreUnavailableError("scheduling delayed job", err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose due time has passed back onto the
// ready list. ZRem before RPush keeps a job from being promoted twice
// when promoters race.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	rdb := q.client.Client()

	members, err := rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("reading delayed jobs", err)
	}

	promoted := 0
	for _, member := range members {
		removed, err := rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return promoted, apperrors.NewStoreUnavailableError("removing delayed job", err)
		}
		if removed == 0 {
			continue
		}
		if err := rdb.RPush(ctx, readyKey, member).Err(); err != nil {
			return promoted, apperrors.NewStoreUnavailableError("promoting delayed job", err)
		}
		promoted++
	}
	return promoted, nil
}

// InFlight returns jobs currently on the processing list.
func (q *RedisQueue) InFlight(ctx context.Context) ([]*entities.Job, error) {
	rdb := q.client.Client()

	raws, err := rdb.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("reading processing list", err)
	}

	jobs := make([]*entities.Job, 0, len(raws))
	for _, raw := range raws {
		var job entities.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			log.Warn().Err(err).Msg("skipping malformed job on processing list")
			continue
		}
		job.Raw = []byte(raw)
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
