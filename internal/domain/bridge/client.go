// Package bridge implements the client side of the extension bridge: the
// identity handshake, the GET_TABS request/reply exchange and the fallback
// path used when no extension is connected.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/domain/inbox"
	"github.com/tabflow/backend/internal/domain/workspace"
)

// Message is the wire format exchanged with the extension.
type Message struct {
	Type      string          `json:"type,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	BridgeID  string          `json:"bridgeId,omitempty"`
	Tabs      []workspace.Tab `json:"tabs,omitempty"`
}

// Message types. BRIDGE_READY arrives unsolicited at any time after the
// extension loads; GET_TABS is sent by us and answered with a tab list.
const (
	TypeBridgeReady = "BRIDGE_READY"
	TypeGetTabs     = "GET_TABS"
)

// State of the fetch cycle.
type State string

const (
	// StateAwaitingHandshake means no trusted bridge identity is known.
	StateAwaitingHandshake State = "awaiting_handshake"
	// StateReady means an identity is trusted and no fetch is in flight.
	StateReady State = "ready"
	// StateFetching means a GET_TABS exchange is outstanding.
	StateFetching State = "fetching"
)

var (
	// ErrNotConfigured is returned when a fetch is requested before any
	// bridge identity has been trusted. Recoverable by configuration.
	ErrNotConfigured = errors.New("bridge not configured")
	// ErrNoTransport is returned by a Transport when no extension
	// connection is currently established.
	ErrNoTransport = errors.New("no extension connection")
	// ErrFetchFailed covers send failures and malformed or empty replies.
	// The trusted identity is invalidated and must be re-announced.
	ErrFetchFailed = errors.New("bridge fetch failed")
	// ErrFetchTimeout is returned when the extension never replies within
	// the fetch deadline. The trusted identity is invalidated.
	ErrFetchTimeout = errors.New("bridge fetch timed out")
)

// Transport sends one message towards the extension. Implemented by the
// WebSocket endpoint; tests inject fakes.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// IdentityStore persists the trusted bridge identity across restarts.
type IdentityStore interface {
	LoadBridgeID() (string, error)
	SaveBridgeID(bridgeID string) error
}

// Observer counts fetch outcomes.
type Observer interface {
	RecordFetch(result string)
}

// Config tunes the client.
type Config struct {
	// FetchTimeout bounds the wait for a GET_TABS reply.
	FetchTimeout time.Duration
	// MockFallback substitutes a fixed tab list when no extension is
	// connected. Development mode only.
	MockFallback bool
	// MockDelay is the fixed delay before the fallback list is returned.
	MockDelay time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout: 10 * time.Second,
		MockDelay:    800 * time.Millisecond,
	}
}

// Client drives fetch cycles against the extension. The trusted identity is
// adopted from unsolicited BRIDGE_READY announcements (last write wins) and
// seeded at startup from the identity store.
type Client struct {
	mu        sync.Mutex
	transport Transport
	identity  string
	fetching  int
	seq       uint64
	pending   *pendingFetch

	inbox    *inbox.Inbox
	ids      IdentityStore
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

type pendingFetch struct {
	seq       uint64
	requestID string
	replies   chan []workspace.Tab
}

// NewClient creates a client feeding the given inbox. The initial trusted
// identity is read from the identity store, so a configured bridge survives
// restarts until a fresh announcement overwrites it.
func NewClient(box *inbox.Inbox, ids IdentityStore, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	if cfg.MockDelay <= 0 {
		cfg.MockDelay = DefaultConfig().MockDelay
	}
	c := &Client{inbox: box, ids: ids, cfg: cfg, logger: logger}
	if ids != nil {
		identity, err := ids.LoadBridgeID()
		if err != nil {
			logger.Warn("failed to load stored bridge identity", zap.Error(err))
		}
		c.identity = identity
	}
	return c
}

// WithObserver attaches a metrics observer.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// AttachTransport installs the transport used for outgoing messages.
func (c *Client) AttachTransport(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
}

// HandleAnnounce adopts an announced identity as trusted. Announcements are
// listened for continuously, not just during a fetch, and a re-announcement
// overwrites the previous identity.
func (c *Client) HandleAnnounce(bridgeID string) {
	if bridgeID == "" {
		return
	}
	c.mu.Lock()
	c.identity = bridgeID
	c.mu.Unlock()

	c.logger.Info("bridge identity announced", zap.String("bridge_id", bridgeID))
	if c.ids != nil {
		if err := c.ids.SaveBridgeID(bridgeID); err != nil {
			c.logger.Warn("failed to persist bridge identity", zap.Error(err))
		}
	}
}

// SetIdentity trusts a user-entered identity, the manual configuration path.
func (c *Client) SetIdentity(bridgeID string) {
	c.HandleAnnounce(bridgeID)
}

// HandleReply routes one GET_TABS reply into the outstanding fetch. Replies
// that match no outstanding request (already timed out, or superseded by a
// newer fetch) are dropped.
func (c *Client) HandleReply(requestID string, tabs []workspace.Tab) {
	c.mu.Lock()
	p := c.pending
	if p == nil || p.requestID != requestID {
		c.mu.Unlock()
		c.logger.Debug("dropping unmatched bridge reply", zap.String("request_id", requestID))
		return
	}
	c.pending = nil
	c.mu.Unlock()

	select {
	case p.replies <- tabs:
	default:
	}
}

// State reports the current fetch-cycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.fetching > 0:
		return StateFetching
	case c.identity == "":
		return StateAwaitingHandshake
	default:
		return StateReady
	}
}

// Identity returns the currently trusted bridge identity, or "".
func (c *Client) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Fetch runs one fetch cycle: sends GET_TABS and waits for a single reply
// under the configured deadline. On success the inbox contents are replaced.
// Without a trusted identity the fetch fails immediately and the fetching
// state is never entered. A failed or timed-out exchange invalidates the
// in-memory trust, forcing a re-handshake before the next fetch can succeed;
// the persisted identity is kept as the initial trust for the next restart.
func (c *Client) Fetch(ctx context.Context) ([]workspace.Tab, error) {
	c.mu.Lock()
	if c.identity == "" {
		c.mu.Unlock()
		c.record("not_configured")
		return nil, ErrNotConfigured
	}
	c.seq++
	p := &pendingFetch{
		seq:       c.seq,
		requestID: uuid.NewString(),
		replies:   make(chan []workspace.Tab, 1),
	}
	c.pending = p
	c.fetching++
	t := c.transport
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.fetching--
		if c.pending == p {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	if t == nil {
		return c.fetchWithoutTransport(ctx, p.seq)
	}

	if err := t.Send(ctx, Message{Type: TypeGetTabs, RequestID: p.requestID}); err != nil {
		if errors.Is(err, ErrNoTransport) {
			return c.fetchWithoutTransport(ctx, p.seq)
		}
		c.invalidate()
		c.record("failed")
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	timer := time.NewTimer(c.cfg.FetchTimeout)
	defer timer.Stop()

	select {
	case tabs := <-p.replies:
		if len(tabs) == 0 {
			c.invalidate()
			c.record("failed")
			return nil, fmt.Errorf("%w: malformed or empty reply", ErrFetchFailed)
		}
		if !c.inbox.Replace(p.seq, tabs) {
			c.record("superseded")
			return nil, fmt.Errorf("%w: superseded by a newer fetch", ErrFetchFailed)
		}
		c.record("success")
		c.logger.Info("live tabs fetched", zap.Int("count", len(tabs)))
		return tabs, nil
	case <-timer.C:
		c.invalidate()
		c.record("timeout")
		return nil, ErrFetchTimeout
	case <-ctx.Done():
		c.record("canceled")
		return nil, ctx.Err()
	}
}

// fetchWithoutTransport handles the degraded path where no extension
// connection exists. With the mock fallback enabled a fixed tab list is
// substituted after a short fixed delay; otherwise the fetch fails and
// trust is invalidated so the next announcement re-establishes it.
func (c *Client) fetchWithoutTransport(ctx context.Context, seq uint64) ([]workspace.Tab, error) {
	if !c.cfg.MockFallback {
		c.invalidate()
		c.record("failed")
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, ErrNoTransport)
	}

	select {
	case <-time.After(c.cfg.MockDelay):
	case <-ctx.Done():
		c.record("canceled")
		return nil, ctx.Err()
	}
	tabs := FallbackTabs()
	if !c.inbox.Replace(seq, tabs) {
		c.record("superseded")
		return nil, fmt.Errorf("%w: superseded by a newer fetch", ErrFetchFailed)
	}
	c.record("mock")
	return tabs, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.identity = ""
	c.mu.Unlock()
}

func (c *Client) record(result string) {
	if c.observer != nil {
		c.observer.RecordFetch(result)
	}
}
