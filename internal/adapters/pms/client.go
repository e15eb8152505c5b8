// internal/adapters/pms/client.go
package pms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pms_sync/internal/adapters/observability"
	"pms_sync/internal/domain"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultAttempts     = 3
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultMaxRetryWait = 5 * time.Second
	DefaultRateLimit    = 2.0
	DefaultCacheTTL     = 300 * time.Second
	defaultCachePrefix  = "pms:"
)

type Options struct {
	BaseURL      string
	APIKey       string // optional; sent as X-API-Key when set
	Timeout      time.Duration
	Attempts     int
	RetryDelay   time.Duration
	MaxRetryWait time.Duration // upper bound on a server-sent Retry-After
	RateLimit    float64       // requests per second
	CacheTTL     time.Duration
	CachePrefix  string
	HTTPClient   *http.Client
}

type Client struct {
	base     string
	hc       *http.Client
	key      string
	rl       *rate.Limiter
	attempts int
	delay    time.Duration
	maxWait  time.Duration
	cache    domain.Cache
	ttl      time.Duration
	prefix   string
	log      zerolog.Logger
}

var _ domain.PMSClient = (*Client)(nil)

// New builds a client. cache may be nil, in which case every read goes to the network.
func New(opts Options, cache domain.Cache, logger zerolog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("PMS base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("PMS base URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MaxRetryWait <= 0 {
		opts.MaxRetryWait = DefaultMaxRetryWait
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CachePrefix == "" {
		opts.CachePrefix = defaultCachePrefix
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		hc:       hc,
		key:      opts.APIKey,
		rl:       rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		maxWait:  opts.MaxRetryWait,
		cache:    cache,
		ttl:      opts.CacheTTL,
		prefix:   opts.CachePrefix,
		log:      logger.With().Str("component", "pms_client").Logger(),
	}, nil
}

// ---- Public API ----

// ListBookingIDs returns every booking id, or only those updated after since.
func (c *Client) ListBookingIDs(ctx context.Context, since *time.Time) ([]int64, error) {
	u := c.base + "/bookings"
	sinceKey := ""
	if since != nil {
		sinceKey = FormatSince(*since)
		q := url.Values{}
		q.Set("updated_at.gt", sinceKey)
		u += "?" + q.Encode()
	}
	var out domain.BookingIDsPayload
	if err := c.cached(ctx, domain.KindBookingList, c.listKey(sinceKey), u, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []int64{}, nil
	}
	return out.Data, nil
}

func (c *Client) GetBookingDetail(ctx context.Context, id int64) (domain.BookingPayload, error) {
	var out domain.BookingPayload
	return out, c.getEntity(ctx, domain.KindBooking, "/bookings/", id, &out)
}

func (c *Client) GetRoomDetail(ctx context.Context, id int64) (domain.RoomPayload, error) {
	var out domain.RoomPayload
	return out, c.getEntity(ctx, domain.KindRoom, "/rooms/", id, &out)
}

func (c *Client) GetRoomTypeDetail(ctx context.Context, id int64) (domain.RoomTypePayload, error) {
	var out domain.RoomTypePayload
	return out, c.getEntity(ctx, domain.KindRoomType, "/room-types/", id, &out)
}

func (c *Client) GetGuestDetail(ctx context.Context, id int64) (domain.GuestPayload, error) {
	var out domain.GuestPayload
	return out, c.getEntity(ctx, domain.KindGuest, "/guests/", id, &out)
}

// GetGuestDetails fetches guests one by one. Failed ids are logged and left out of the result.
func (c *Client) GetGuestDetails(ctx context.Context, ids []int64) map[int64]domain.GuestPayload {
	out := make(map[int64]domain.GuestPayload, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		g, err := c.GetGuestDetail(ctx, id)
		if err != nil {
			pe := &domain.PartialFetchError{Kind: domain.KindGuest, ID: id, Err: err}
			c.log.Warn().Err(pe).Int64("id", id).Str("kind", string(domain.KindGuest)).Msg("guest fetch failed, skipping")
			continue
		}
		out[id] = g
	}
	return out
}

// Invalidate evicts the cached response for one entity. For KindBookingList, id is ignored
// and every cached listing (full and since-filtered) is evicted.
func (c *Client) Invalidate(ctx context.Context, kind domain.EntityKind, id int64) error {
	if c.cache == nil {
		return nil
	}
	if kind == domain.KindBookingList {
		return c.cache.DelPrefix(ctx, c.prefix+string(domain.KindBookingList)+":")
	}
	return c.cache.Del(ctx, c.entityKey(kind, id))
}

func (c *Client) InvalidateAll(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.DelPrefix(ctx, c.prefix)
}

// FormatSince renders the updated_at watermark: a bare date at midnight UTC, RFC 3339 otherwise.
func FormatSince(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// ---- Internals ----

func (c *Client) entityKey(kind domain.EntityKind, id int64) string {
	return c.prefix + string(kind) + ":" + strconv.FormatInt(id, 10)
}

func (c *Client) listKey(since string) string {
	if since == "" {
		return c.prefix + string(domain.KindBookingList) + ":all"
	}
	return c.prefix + string(domain.KindBookingList) + ":since=" + since
}

func (c *Client) getEntity(ctx context.Context, kind domain.EntityKind, path string, id int64, out any) error {
	u := c.base + path + strconv.FormatInt(id, 10)
	return c.cached(ctx, kind, c.entityKey(kind, id), u, out)
}

// cached serves out from the cache when possible, otherwise fetches and stores it.
// Cache failures are logged and never fail the read.
func (c *Client) cached(ctx context.Context, kind domain.EntityKind, key, u string, out any) error {
	if c.cache != nil {
		ok, err := c.cache.Get(ctx, key, out)
		if err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		} else if ok {
			return nil
		}
	}
	if err := c.get(ctx, string(kind), u, out); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return nil
}

// get performs a GET with client-side pacing, a fixed number of attempts and JSON decode into out.
// Transport errors and any non-2xx status are retried after a fixed delay, or after Retry-After
// (capped at MaxRetryWait) when the server sends one.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	var last *domain.APIError
	for i := 0; i < c.attempts; i++ {
		// every network attempt is paced, cache hits never reach here
		if err := c.rl.Wait(ctx); err != nil {
			return &domain.APIError{URL: u, Err: &domain.TransportError{URL: u, Err: err}}
		}

		wait, err := c.do(ctx, endpoint, u, out)
		if err == nil {
			return nil
		}
		if !errors.As(err, &last) {
			return err
		}
		c.log.Debug().Err(err).Str("url", u).Int("attempt", i+1).Int("status", last.Status).Msg("pms request failed")
		if ctx.Err() != nil {
			return last
		}
		if i < c.attempts-1 {
			if wait == 0 {
				wait = c.delay
			}
			if wait > c.maxWait {
				wait = c.maxWait
			}
			if !sleepCtx(ctx, wait) {
				return last
			}
		}
	}
	c.log.Warn().Err(last).Str("url", u).Int("attempts", c.attempts).Msg("pms request gave up")
	return last
}

// do issues one attempt. Retryable failures come back as *domain.APIError,
// alongside any server-requested delay.
func (c *Client) do(ctx context.Context, endpoint, u string, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pms-sync/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("pms", endpoint, 0, time.Since(start))
		return 0, &domain.APIError{URL: u, Err: &domain.TransportError{URL: u, Err: err}}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("pms", endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return retryAfter(resp), &domain.APIError{
			Status: resp.StatusCode,
			URL:    u,
			Body:   strings.TrimSpace(string(b)),
		}
	}
	if resp.StatusCode == http.StatusNoContent {
		return 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// a malformed body will not improve on retry
		return 0, fmt.Errorf("decode %s: %w: %w", u, domain.ErrInvalidPayload, err)
	}
	return 0, nil
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
