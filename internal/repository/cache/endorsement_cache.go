package cache

import (
	"context"
	"strconv"
	"time"

	"go-profile-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	endorsementCountPrefix = "endorsements:count:"
	endorsementGenPrefix   = "endorsements:gen:"
	EndorsementCountTTL    = 60 * time.Second
	// Generations outlive any count written under them.
	endorsementGenTTL = 24 * time.Hour
)

// fillScript writes the count only if the generation is unchanged.
// KEYS: count, gen. ARGV: count, expected gen, ttl in ms.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

type endorsementCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEndorsementCountCache(client *redis.Client) domain.EndorsementCountCache {
	return &endorsementCountCache{client: client, ttl: EndorsementCountTTL}
}

func endorsementCountKey(skillID string) string {
	return endorsementCountPrefix + skillID
}

func endorsementGenKey(skillID string) string {
	return endorsementGenPrefix + skillID
}

func (c *endorsementCountCache) Get(ctx context.Context, skillID string) (int64, int64, bool, error) {
	vals, err := c.client.MGet(ctx, endorsementCountKey(skillID), endorsementGenKey(skillID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	gen, err := parseInt(vals[1])
	if err != nil {
		return 0, 0, false, err
	}
	if vals[0] == nil {
		return 0, gen, false, nil
	}
	count, err := parseInt(vals[0])
	if err != nil {
		return 0, 0, false, err
	}
	return count, gen, true, nil
}

func (c *endorsementCountCache) Fill(ctx context.Context, skillID string, count, gen int64) error {
	keys := []string{endorsementCountKey(skillID), endorsementGenKey(skillID)}
	return fillScript.Run(ctx, c.client, keys, count, gen, c.ttl.Milliseconds()).Err()
}

func (c *endorsementCountCache) Invalidate(ctx context.Context, skillIDs ...string) error {
	if len(skillIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range skillIDs {
			pipe.Incr(ctx, endorsementGenKey(id))
			pipe.Expire(ctx, endorsementGenKey(id), endorsementGenTTL)
			pipe.Del(ctx, endorsementCountKey(id))
		}
		return nil
	})
	return err
}

// parseInt reads an MGET slot; a missing key is zero.
func parseInt(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}
