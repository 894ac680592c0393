package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshThreshold is how long before expiry a cached token is replaced.
const DefaultRefreshThreshold = 60 * time.Second

// errRefreshAbandoned is returned to waiters of a refresh that Invalidate
// cancelled; they rejoin the next generation instead of failing.
var errRefreshAbandoned = errors.New("token refresh abandoned by invalidation")

// Refresher obtains a brand-new token from the authorization server.
type Refresher interface {
	Refresh(ctx context.Context) (*Token, error)
}

type TokenCacheConfig struct {
	Threshold time.Duration
	Now       func() time.Time
	Logger    zerolog.Logger
}

// TokenCache holds at most one token and guarantees a single live refresh
// regardless of how many callers need a new one.
type TokenCache struct {
	refresher Refresher
	threshold time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	group singleflight.Group

	mu            sync.Mutex
	token         *Token
	generation    uint64
	cancelRefresh context.CancelFunc
	refreshes     int64
}

func NewTokenCache(refresher Refresher, cfg TokenCacheConfig) *TokenCache {
	if cfg.Threshold < 0 {
		cfg.Threshold = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenCache{
		refresher: refresher,
		threshold: cfg.Threshold,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
}

// Token returns the cached token when it is outside the refresh threshold,
// otherwise joins (or starts) the in-flight refresh. Cancelling ctx only
// detaches this caller; the shared refresh keeps running for the others.
func (c *TokenCache) Token(ctx context.Context) (*Token, error) {
	for {
		c.mu.Lock()
		if tok := c.validLocked(); tok != nil {
			c.mu.Unlock()
			return tok, nil
		}
		gen := c.generation
		c.mu.Unlock()

		ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
			return c.refresh(ctx, gen)
		})

		select {
		case <-ctx.Done():
			return nil, upserr.Network(ctx.Err())
		case res := <-ch:
			if errors.Is(res.Err, errRefreshAbandoned) {
				continue
			}
			if res.Err != nil {
				return nil, res.Err
			}
			return res.Val.(*Token), nil
		}
	}
}

// Invalidate drops the cached token and cancels any in-flight refresh. The
// next caller starts a fresh exchange.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = nil
	c.generation++
	if c.cancelRefresh != nil {
		c.cancelRefresh()
		c.cancelRefresh = nil
	}
	c.logger.Debug().Uint64("generation", c.generation).Msg("Token cache invalidated")
}

// InvalidateIfCurrent drops tok only if it is still the cached token and
// reports whether it did. A caller holding a token that was already replaced
// or dropped leaves the cache alone, so a burst of 401s for the same token
// results in a single refresh. A refresh already in flight is kept since it
// will replace tok anyway.
func (c *TokenCache) InvalidateIfCurrent(tok *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok == nil || c.token != tok {
		return false
	}
	c.token = nil
	if c.cancelRefresh == nil {
		c.generation++
	}
	c.logger.Debug().Uint64("generation", c.generation).Msg("Rejected token dropped from cache")
	return true
}

func (c *TokenCache) refresh(parent context.Context, gen uint64) (interface{}, error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil, errRefreshAbandoned
	}
	// Another flight may have stored a token between the caller's check and now.
	if tok := c.validLocked(); tok != nil {
		c.mu.Unlock()
		return tok, nil
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	c.cancelRefresh = cancel
	c.refreshes++
	c.mu.Unlock()
	defer cancel()

	c.logger.Info().Uint64("generation", gen).Msg("🔄 Refreshing OAuth token")
	tok, err := c.refresher.Refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return nil, errRefreshAbandoned
	}
	c.cancelRefresh = nil
	if err != nil {
		c.logger.Error().Err(err).Msg("❌ Failed to refresh OAuth token")
		if _, ok := upserr.As(err); ok {
			return nil, err
		}
		return nil, upserr.TokenRefreshFailed(err)
	}
	c.token = tok
	c.logger.Info().
		Int64("minutes_until_expiry", int64(tok.TimeUntilExpiry(c.now()).Minutes())).
		Msg("✅ OAuth token refreshed successfully")
	return tok, nil
}

func (c *TokenCache) validLocked() *Token {
	if c.token == nil || c.token.NeedsRefresh(c.now(), c.threshold) {
		return nil
	}
	return c.token
}

// TokenStatus is a point-in-time view of the cache for diagnostics.
type TokenStatus struct {
	Cached          bool          `json:"cached"`
	TokenType       string        `json:"tokenType,omitempty"`
	ExpiresAt       time.Time     `json:"expiresAt,omitzero"`
	TimeRemaining   time.Duration `json:"-"`
	SecondsLeft     int64         `json:"secondsRemaining"`
	Scope           string        `json:"scope,omitempty"`
	NeedsRefresh    bool          `json:"needsRefresh"`
	Expired         bool          `json:"expired"`
	RefreshInFlight bool          `json:"refreshInFlight"`
	Refreshes       int64         `json:"refreshes"`
}

func (c *TokenCache) Status() TokenStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := TokenStatus{
		RefreshInFlight: c.cancelRefresh != nil,
		Refreshes:       c.refreshes,
	}
	if c.token == nil {
		return st
	}
	now := c.now()
	st.Cached = true
	st.TokenType = c.token.TokenType
	st.ExpiresAt = c.token.ExpiresAt
	st.TimeRemaining = c.token.TimeUntilExpiry(now)
	st.SecondsLeft = int64(st.TimeRemaining.Seconds())
	st.Scope = c.token.Scope
	st.NeedsRefresh = c.token.NeedsRefresh(now, c.threshold)
	st.Expired = c.token.Expired(now)
	return st
}

func (s TokenStatus) String() string {
	if !s.Cached {
		return "No token cached"
	}
	state := "VALID"
	if s.NeedsRefresh {
		state = "EXPIRED"
	}
	scope := s.Scope
	if scope == "" {
		scope = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Token Status: %s\n", state)
	fmt.Fprintf(&b, "Type: %s\n", s.TokenType)
	fmt.Fprintf(&b, "Expires: %s\n", s.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Time Remaining: %.1fs\n", s.TimeRemaining.Seconds())
	fmt.Fprintf(&b, "Scope: %s", scope)
	return b.String()
}
