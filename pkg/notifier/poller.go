package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultInterval = 30 * time.Second
	defaultToastTTL = 5 * time.Second
)

// Sink receives the poller's rendering commands. Implementations own the
// actual presentation (terminal UI, desktop toasts, a web bridge).
type Sink interface {
	ShowToast(n Notification)
	DismissToast()
	UpdateBadge(count int64)
	RenderList(items []Notification)
	Navigate(url string)
}

// feedClient is the subset of Client the poller needs.
type feedClient interface {
	Fetch(ctx context.Context) (Feed, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context) error
}

// Option customises a Poller.
type Option func(*Poller)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithToastTTL overrides how long a toast stays visible.
func WithToastTTL(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.toastTTL = d
		}
	}
}

// WithLogger attaches a logger to the poller.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger.With().Str("component", "notifier_poller").Logger()
	}
}

// Poller drives the notification feed: an immediate fetch on Start, then one
// fetch per interval. Each successful poll re-renders the list, updates the
// badge from the server's count, and raises a toast for the newest unread
// notification at most once per poller lifetime. A failed poll keeps the
// previously rendered state.
type Poller struct {
	client   feedClient
	sink     Sink
	logger   zerolog.Logger
	interval time.Duration
	toastTTL time.Duration

	mu       sync.Mutex
	items    []Notification
	badge    int64
	seen     map[uint]struct{}
	inFlight bool
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	dismiss  *time.Timer

	// renderMu serializes sink calls against Stop, so a poll that was
	// already past its stopped check cannot repaint state Stop cleared.
	renderMu sync.Mutex
}

// NewPoller builds a poller around a feed client and a sink.
func NewPoller(client feedClient, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		sink:     sink,
		logger:   zerolog.Nop(),
		interval: defaultInterval,
		toastTTL: defaultToastTTL,
		seen:     make(map[uint]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling. It returns immediately; fetches run on a background
// goroutine until Stop is called or the context is cancelled. Starting twice
// is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(runCtx)
}

func (p *Poller) run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches the feed once. Ticks that arrive while a fetch is still in
// flight are dropped rather than queued.
func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	if p.stopped || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	feed, err := p.client.Fetch(ctx)

	p.mu.Lock()
	p.inFlight = false
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn().Err(err).Msg("notification poll failed")
		return
	}

	p.items = feed.Notifications
	p.badge = feed.UnreadCount
	toast, hasToast := p.pickToastLocked()
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.render(func() {
		p.sink.RenderList(snapshot)
		p.sink.UpdateBadge(feed.UnreadCount)
		if hasToast {
			p.showToast(toast)
		}
	})
}

// render runs fn serialized against Stop. Once Stop has run, fn is skipped.
func (p *Poller) render(fn func()) {
	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}

	fn()
}

// pickToastLocked selects the newest unread notification that has not been
// toasted in this session. The feed arrives newest-first.
func (p *Poller) pickToastLocked() (Notification, bool) {
	for _, n := range p.items {
		if n.IsRead {
			continue
		}
		if _, done := p.seen[n.ID]; done {
			return Notification{}, false
		}
		p.seen[n.ID] = struct{}{}
		return n, true
	}
	return Notification{}, false
}

func (p *Poller) showToast(n Notification) {
	p.sink.ShowToast(n)

	p.mu.Lock()
	if p.dismiss != nil {
		p.dismiss.Stop()
	}
	p.dismiss = time.AfterFunc(p.toastTTL, func() {
		p.render(p.sink.DismissToast)
	})
	p.mu.Unlock()
}

// Open marks a notification read optimistically, re-renders, reports the
// change to the server in the background, and navigates to the
// notification's action URL when it has one. The next poll corrects any
// divergence from the server.
func (p *Poller) Open(ctx context.Context, id uint) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}

	var target *Notification
	for i := range p.items {
		if p.items[i].ID == id {
			target = &p.items[i]
			break
		}
	}
	if target == nil {
		p.mu.Unlock()
		return
	}

	actionURL := target.ActionURL
	changed := !target.IsRead
	if changed {
		target.IsRead = true
		if p.badge > 0 {
			p.badge--
		}
	}
	badge := p.badge
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	if changed {
		p.render(func() {
			p.sink.RenderList(snapshot)
			p.sink.UpdateBadge(badge)
		})
		go func() {
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := p.client.MarkRead(callCtx, id); err != nil {
				p.logger.Warn().Err(err).Uint("notification_id", id).Msg("mark read failed")
			}
		}()
	}

	if actionURL != "" {
		p.render(func() {
			p.sink.Navigate(actionURL)
		})
	}
}

// ReadAll clears every unread notification optimistically and reports the
// change to the server in the background.
func (p *Poller) ReadAll(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	for i := range p.items {
		p.items[i].IsRead = true
	}
	p.badge = 0
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.render(func() {
		p.sink.RenderList(snapshot)
		p.sink.UpdateBadge(0)
	})
	go func() {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.client.MarkAllRead(callCtx); err != nil {
			p.logger.Warn().Err(err).Msg("mark all read failed")
		}
	}()
}

// Stop ends polling and clears the presented state. Ticks already scheduled
// become no-ops. Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	if p.dismiss != nil {
		p.dismiss.Stop()
	}
	p.items = nil
	p.badge = 0
	p.mu.Unlock()

	// Taking renderMu here orders the clear after any render that slipped
	// past its stopped check before stopped was set.
	p.renderMu.Lock()
	p.sink.DismissToast()
	p.sink.RenderList(nil)
	p.sink.UpdateBadge(0)
	p.renderMu.Unlock()
}

func (p *Poller) snapshotLocked() []Notification {
	snapshot := make([]Notification, len(p.items))
	copy(snapshot, p.items)
	return snapshot
}
