// Package token manages the bearer credential used to call place-search
// providers.
//
// A Manager holds at most one token. Get returns it while it is valid, and
// otherwise triggers a refresh from the Issuer. Concurrent callers that need
// a refresh share a single call to the issuer. Once started, the manager also
// renews the token on a fixed schedule, 7 days by default.
//
// A failed refresh does not discard the last token: it continues to be served,
// even after it has expired, until a refresh succeeds. Only when no token
// has ever been obtained does Get fail.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/channelqueue"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("token")

const flightKey = "refresh"

// State describes the lifecycle stage of the managed token.
type State int

const (
	// Empty means no token has been obtained yet.
	Empty State = iota
	// Valid means the current token can be served.
	Valid
	// Expired means the token has lapsed or was invalidated, and the next
	// Get will refresh it.
	Expired
	// Refreshing means a call to the issuer is in flight.
	Refreshing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Refreshing:
		return "refreshing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Token is a bearer credential and the time it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer obtains a new token.
type Issuer interface {
	Issue(ctx context.Context) (Token, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (Token, error)

func (f IssuerFunc) Issue(ctx context.Context) (Token, error) {
	return f(ctx)
}

// RefreshEvent reports the outcome of one call to the issuer.
type RefreshEvent struct {
	// Time is when the refresh finished.
	Time time.Time
	// ExpiresAt is the expiry of the token now held. It is zero if no token
	// is held.
	ExpiresAt time.Time
	// Scheduled is true if the refresh was started by the scheduler.
	Scheduled bool
	// Err is the issuer error, if the refresh failed.
	Err error
}

// Manager owns the token lifecycle.
type Manager struct {
	issuer         Issuer
	clock          clock.Clock
	interval       time.Duration
	refreshTimeout time.Duration
	leeway         time.Duration
	backoff        time.Duration

	flight singleflight.Group

	mu         sync.Mutex
	token      Token
	hasToken   bool
	expired    bool
	refreshing bool
	retryAt    time.Time
	listeners  map[chan<- RefreshEvent]struct{}

	started  bool
	stopped  bool
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a Manager that obtains tokens from issuer. The refresh
// schedule does not run until Start is called.
func New(issuer Issuer, options ...Option) (*Manager, error) {
	if issuer == nil {
		return nil, errors.New("nil issuer")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		issuer:         issuer,
		clock:          opts.clock,
		interval:       opts.interval,
		refreshTimeout: opts.refreshTimeout,
		leeway:         opts.leeway,
		backoff:        opts.backoff,
		listeners:      make(map[chan<- RefreshEvent]struct{}),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
	}
	if opts.initial != nil {
		m.token = *opts.initial
		m.hasToken = true
	}
	return m, nil
}

// Get returns a valid token, refreshing it first if necessary. If the
// refresh fails, the last token obtained is returned even if it has
// expired. If there has never been a token, Get returns an auth failure.
func (m *Manager) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	now := m.clock.Now()
	if m.validLocked(now) {
		value := m.token.Value
		m.mu.Unlock()
		return value, nil
	}
	if m.hasToken && now.Before(m.retryAt) {
		value := m.token.Value
		m.mu.Unlock()
		log.Debug("Serving stale token during refresh backoff")
		return value, nil
	}
	ch := m.refreshLocked(false)
	m.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return m.fallback(res.Err)
		}
		return res.Val.(Token).Value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Token implements provider.TokenSource.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.Get(ctx)
}

// Refresh renews the token now, joining a refresh that is already in
// flight. The current token remains available to Get while this runs.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	ch := m.refreshLocked(false)
	m.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("cannot refresh token: %w", res.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate marks the current token as expired, so that the next Get
// refreshes it. Use this when a provider rejects the token.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasToken && !m.expired {
		m.expired = true
		m.retryAt = time.Time{}
		log.Info("Token invalidated")
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.refreshing:
		return Refreshing
	case !m.hasToken:
		return Empty
	case m.validLocked(m.clock.Now()):
		return Valid
	}
	return Expired
}

// ExpiresAt returns the expiry of the token held, or zero if there is none
// or it has no expiry.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.ExpiresAt
}

// Start runs the refresh schedule until Stop is called.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("token manager already started")
	}
	m.started = true
	ticker := m.clock.Ticker(m.interval)
	go m.run(ticker)
	log.Infow("Token refresh scheduled", "interval", m.interval)
	return nil
}

// Stop ends the refresh schedule and closes all OnRefresh channels. It waits
// for any scheduled refresh in progress to be abandoned. Calling Stop more
// than once, or before Start, is allowed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopChan)
	started := m.started
	for ch := range m.listeners {
		close(ch)
	}
	m.listeners = nil
	m.mu.Unlock()

	if started {
		<-m.done
	}
}

// OnRefresh creates a channel that receives an event after every call to
// the issuer. The channel is unbounded, so a slow reader never delays a
// refresh.
//
// Calling the returned cancel function stops notifications and closes the
// channel.
func (m *Manager) OnRefresh() (<-chan RefreshEvent, context.CancelFunc) {
	cq := channelqueue.New[RefreshEvent](-1)
	ch := cq.In()

	m.mu.Lock()
	if m.stopped {
		close(ch)
	} else {
		m.listeners[ch] = struct{}{}
	}
	m.mu.Unlock()

	cncl := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.listeners[ch]; ok {
			delete(m.listeners, ch)
			close(ch)
		}
	}
	return cq.Out(), cncl
}

func (m *Manager) run(ticker *clock.Ticker) {
	defer close(m.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.expired = true
			ch := m.refreshLocked(true)
			m.mu.Unlock()
			select {
			case <-ch:
			case <-m.stopChan:
				return
			}
		case <-m.stopChan:
			return
		}
	}
}

// refreshLocked starts a refresh, or joins the one in flight, and returns
// the channel that receives its result. The check for an existing flight and
// the join happen under m.mu, so a caller can never start a second refresh
// while one is running.
func (m *Manager) refreshLocked(scheduled bool) <-chan singleflight.Result {
	m.refreshing = true
	return m.flight.DoChan(flightKey, func() (any, error) {
		return m.issue(scheduled)
	})
}

func (m *Manager) issue(scheduled bool) (Token, error) {
	ctx, cancel := m.clock.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	tok, err := m.issuer.Issue(ctx)
	if err == nil && tok.Value == "" {
		err = errors.New("issuer returned empty token")
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshing = false
	if err != nil {
		m.retryAt = now.Add(m.backoff)
		log.Errorw("Token refresh failed", "err", err, "scheduled", scheduled, "haveToken", m.hasToken)
	} else {
		m.token = tok
		m.hasToken = true
		m.expired = false
		m.retryAt = time.Time{}
		log.Infow("Token refreshed", "expiresAt", tok.ExpiresAt, "scheduled", scheduled)
	}

	ev := RefreshEvent{
		Time:      now,
		ExpiresAt: m.token.ExpiresAt,
		Scheduled: scheduled,
		Err:       err,
	}
	for ch := range m.listeners {
		ch <- ev
	}
	return tok, err
}

func (m *Manager) fallback(err error) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasToken {
		log.Warnw("Serving last token after failed refresh", "err", err, "expiresAt", m.token.ExpiresAt)
		return m.token.Value, nil
	}
	return "", apierror.Auth(err)
}

func (m *Manager) validLocked(now time.Time) bool {
	if !m.hasToken || m.expired {
		return false
	}
	if m.token.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(m.token.ExpiresAt.Add(-m.leeway))
}
