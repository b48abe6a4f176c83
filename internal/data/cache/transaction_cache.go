package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

const (
	viewKeyPrefix     = "transactions:view:"
	listKeyPrefix     = "transactions:list:"
	generationKey     = "transactions:list:generation"
	statusFilterAll   = "all"
	defaultOpsTimeout = 500 * time.Millisecond
)

// putIfNewer keeps the cached entry when it already holds a higher version
var putIfNewer = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
  local ok, decoded = pcall(cjson.decode, current)
  if ok and tonumber(decoded["version"]) and tonumber(decoded["version"]) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

type cachedView struct {
	Version int64            `json:"version"`
	View    transaction.View `json:"view"`
}

// TransactionCache implements transaction.Cache on Redis
type TransactionCache struct {
	client  redis.Cmdable
	logger  *slog.Logger
	ttl     time.Duration
	timeout time.Duration
}

var _ transaction.Cache = (*TransactionCache)(nil)

func NewTransactionCache(logger *slog.Logger, client redis.Cmdable, ttl, timeout time.Duration) *TransactionCache {
	if timeout <= 0 {
		timeout = defaultOpsTimeout
	}
	return &TransactionCache{
		client:  client,
		logger:  logger,
		ttl:     ttl,
		timeout: timeout,
	}
}

func viewKey(id uuid.UUID) string {
	return viewKeyPrefix + id.String()
}

func pageKey(generation int64, q transaction.ListQuery) string {
	status := statusFilterAll
	if q.Status != nil {
		status = string(*q.Status)
	}
	return fmt.Sprintf("%sg%d:%s:%d:%d", listKeyPrefix, generation, status, q.Page, q.Size)
}

func (c *TransactionCache) GetView(ctx context.Context, externalID uuid.UUID) (*transaction.View, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, viewKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached transaction %s: %w", externalID, err)
	}

	var entry cachedView
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", "transaction_id", externalID, "error", err)
		return nil, nil
	}
	return &entry.View, nil
}

func (c *TransactionCache) PutView(ctx context.Context, version int64, v transaction.View) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(cachedView{Version: version, View: v})
	if err != nil {
		return fmt.Errorf("failed to encode transaction view: %w", err)
	}

	stored, err := putIfNewer.Run(ctx, c.client, []string{viewKey(v.TransactionID)}, string(payload), version, c.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to cache transaction %s: %w", v.TransactionID, err)
	}
	if stored == 0 {
		c.logger.Debug("Cached transaction is newer, skipping put", "transaction_id", v.TransactionID, "version", version)
	}
	return nil
}

func (c *TransactionCache) generation(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid list generation %q: %w", raw, err)
	}
	return gen, nil
}

func (c *TransactionCache) GetPage(ctx context.Context, q transaction.ListQuery) (*transaction.Page, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read list generation: %w", err)
	}

	raw, err := c.client.Get(ctx, pageKey(gen, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, nil
	}
	if err != nil {
		return nil, gen, fmt.Errorf("failed to read cached page: %w", err)
	}

	var page transaction.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.Warn("Dropping undecodable cached page", "error", err)
		return nil, gen, nil
	}
	return &page, gen, nil
}

func (c *TransactionCache) PutPage(ctx context.Context, q transaction.ListQuery, generation int64, p transaction.Page) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if err := c.client.Set(ctx, pageKey(generation, q), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

func (c *TransactionCache) InvalidateLists(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached pages: %w", err)
	}
	return nil
}
