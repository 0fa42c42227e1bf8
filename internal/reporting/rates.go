package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateSource converts currencies into a reporting currency. ToTarget returns
// the rate for every currency it can price; unknown currencies are absent
// from the map.
type RateSource interface {
	ToTarget(ctx context.Context, target string, currencies []string) (map[string]decimal.Decimal, error)
}

// resolve prefers a direct from->target rate and falls back to the inverse
// of target->from.
func resolve(target string, currencies []string, direct, inverse map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(currencies))
	for _, cc := range currencies {
		switch {
		case cc == target:
			out[cc] = decimal.NewFromInt(1)
		case direct[cc].IsPositive():
			out[cc] = direct[cc]
		case inverse[cc].IsPositive():
			out[cc] = decimal.NewFromInt(1).Div(inverse[cc])
		}
	}
	return out
}

// PostgresRates reads the exchange_rates table filled by the rates importer.
type PostgresRates struct {
	db *pgxpool.Pool
}

// NewPostgresRates builds a RateSource over exchange_rates.
func NewPostgresRates(db *pgxpool.Pool) *PostgresRates {
	return &PostgresRates{db: db}
}

// ToTarget implements RateSource.
func (r *PostgresRates) ToTarget(ctx context.Context, target string, currencies []string) (map[string]decimal.Decimal, error) {
	direct, err := r.query(ctx, `SELECT from_currency, rate FROM exchange_rates
        WHERE to_currency = $1 AND from_currency = ANY($2)`, target, currencies)
	if err != nil {
		return nil, fmt.Errorf("direct rates: %w", err)
	}
	inverse, err := r.query(ctx, `SELECT to_currency, rate FROM exchange_rates
        WHERE from_currency = $1 AND to_currency = ANY($2)`, target, currencies)
	if err != nil {
		return nil, fmt.Errorf("inverse rates: %w", err)
	}
	return resolve(target, currencies, direct, inverse), nil
}

func (r *PostgresRates) query(ctx context.Context, sql, target string, currencies []string) (map[string]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, sql, target, currencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			code string
			rate decimal.Decimal
		)
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, err
		}
		rates[strings.ToUpper(code)] = rate
	}
	return rates, rows.Err()
}

// StaticRates is a fixed rate table keyed "FROM/TO", used when no database
// is configured.
type StaticRates map[string]decimal.Decimal

// ToTarget implements RateSource.
func (s StaticRates) ToTarget(_ context.Context, target string, currencies []string) (map[string]decimal.Decimal, error) {
	direct := make(map[string]decimal.Decimal)
	inverse := make(map[string]decimal.Decimal)
	for _, cc := range currencies {
		if rate, ok := s[cc+"/"+target]; ok {
			direct[cc] = rate
		}
		if rate, ok := s[target+"/"+cc]; ok {
			inverse[cc] = rate
		}
	}
	return resolve(target, currencies, direct, inverse), nil
}

const rateCachePrefix = "fx:v1:"

// CachedRates keeps resolved rates in Redis for ttl. Currencies without a
// rate are not cached, so a newly imported rate shows up on the next call.
type CachedRates struct {
	next   RateSource
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRates wraps next with a Redis cache.
func NewCachedRates(next RateSource, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRates {
	return &CachedRates{next: next, cache: cache, ttl: ttl, logger: logger}
}

// ToTarget implements RateSource. Cache failures fall through to next.
func (c *CachedRates) ToTarget(ctx context.Context, target string, currencies []string) (map[string]decimal.Decimal, error) {
	if len(currencies) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	keys := make([]string, len(currencies))
	for i, cc := range currencies {
		keys[i] = rateCachePrefix + cc + ":" + target
	}

	out := make(map[string]decimal.Decimal, len(currencies))
	var misses []string
	cached, err := c.cache.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("rate cache lookup failed", slog.Any("error", err))
		cached = make([]interface{}, len(keys))
	}
	for i, cc := range currencies {
		raw, ok := cached[i].(string)
		if !ok {
			misses = append(misses, cc)
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			misses = append(misses, cc)
			continue
		}
		out[cc] = rate
	}
	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.next.ToTarget(ctx, target, misses)
	if err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return out, nil
	}
	pipe := c.cache.Pipeline()
	for cc, rate := range fresh {
		out[cc] = rate
		pipe.Set(ctx, rateCachePrefix+cc+":"+target, rate.String(), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("rate cache store failed", slog.Any("error", err))
	}
	return out, nil
}
