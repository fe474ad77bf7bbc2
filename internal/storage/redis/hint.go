// Package redis stores applied-coupon hints in Redis.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

var _ checkout.HintStore = (*HintStore)(nil)

const (
	keyNamespace = "pricing"
	hintPrefix   = "hint"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// HintStore keeps one hint per cart and actor, JSON-encoded, with a TTL.
type HintStore struct {
	store cmdable
	raw   *redis.Client
}

// New connects to the Redis server at url and verifies connectivity.
func New(ctx context.Context, url string) (*HintStore, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &HintStore{store: raw, raw: raw}, nil
}

// Ping checks the connection. Used by the readiness probe.
func (s *HintStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *HintStore) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}

// Get returns the hint or checkout.ErrHintNotFound.
func (s *HintStore) Get(ctx context.Context, cartID, actorKey string) (*checkout.Hint, error) {
	raw, err := s.store.Get(ctx, HintKey(cartID, actorKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, checkout.ErrHintNotFound
		}
		return nil, errors.Wrap(err, "get hint")
	}
	h, err := decodeHint(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode hint")
	}
	return h, nil
}

// Put stores h. A ttl of zero keeps the key until it is deleted.
func (s *HintStore) Put(ctx context.Context, h *checkout.Hint, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.store.Set(ctx, HintKey(h.CartID, h.ActorKey), encodeHint(h), ttl).Err(); err != nil {
		return errors.Wrap(err, "set hint")
	}
	return nil
}

// Delete removes the hint. Missing keys are not an error.
func (s *HintStore) Delete(ctx context.Context, cartID, actorKey string) error {
	if err := s.store.Del(ctx, HintKey(cartID, actorKey)).Err(); err != nil {
		return errors.Wrap(err, "delete hint")
	}
	return nil
}

// HintKey returns the namespaced key of a cart's hint for one actor.
func HintKey(cartID, actorKey string) string {
	return buildKey(hintPrefix, cartID, actorKey)
}

func buildKey(parts ...string) string {
	segments := []string{keyNamespace}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(segments, ":")
}

func encodeHint(h *checkout.Hint) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("cartId")
	e.Str(h.CartID)
	e.FieldStart("actorKey")
	e.Str(h.ActorKey)
	e.FieldStart("code")
	e.Str(h.Code)
	e.FieldStart("description")
	e.Str(h.Description)
	e.FieldStart("discountAmount")
	e.Str(h.DiscountAmount.String())
	e.FieldStart("appliedAt")
	e.Str(h.AppliedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

func decodeHint(raw []byte) (*checkout.Hint, error) {
	var h checkout.Hint
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "cartId":
			v, err := d.Str()
			h.CartID = v
			return err
		case "actorKey":
			v, err := d.Str()
			h.ActorKey = v
			return err
		case "code":
			v, err := d.Str()
			h.Code = v
			return err
		case "description":
			v, err := d.Str()
			h.Description = v
			return err
		case "discountAmount":
			v, err := d.Str()
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(v)
			if err != nil {
				return errors.Wrap(err, "discountAmount")
			}
			h.DiscountAmount = amount
			return nil
		case "appliedAt":
			v, err := d.Str()
			if err != nil {
				return err
			}
			at, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return errors.Wrap(err, "appliedAt")
			}
			h.AppliedAt = at
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}
