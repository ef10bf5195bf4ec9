package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
)

// QuestionCache caches the question bank in Redis as a JSON list and falls
// back to the wrapped loader on a miss.
// The bank is stored as: SET quiz:bank:{name} {json list} EX {ttl}
type QuestionCache struct {
	client *redis.Client
	loader app.QuestionLoader
	name   string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader app.QuestionLoader, name string, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		name:   name,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(c.name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx); ok {
			return qs, nil
		}
		qs, err := c.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(qs); err == nil {
			_ = c.client.Set(ctx, c.key(), data, c.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	if err := domain.ValidateQuestions(qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) key() string {
	return "quiz:bank:" + c.name
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
