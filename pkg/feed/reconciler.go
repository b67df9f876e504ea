package feed

import (
	"context"
	"sync"
	"time"

	"prism/pkg/identity"
	"prism/pkg/models"

	"github.com/rs/zerolog"
)

var DefaultPollInterval = 30 * time.Second

// PollSource returns the newest activity for an address.
type PollSource interface {
	GetFeed(ctx context.Context, address string, limit int) ([]models.ActivityItem, error)
}

// PushSource streams activity for an address until ctx is done, then closes
// the channel.
type PushSource interface {
	Subscribe(ctx context.Context, address string) (<-chan models.ActivityItem, error)
}

// Reconciler attaches feed sessions to addresses.
type Reconciler struct {
	poll PollSource
	push PushSource
	log  zerolog.Logger

	Interval time.Duration
	Limit    int
}

// NewReconciler builds a reconciler. push may be nil, leaving polling alone.
func NewReconciler(poll PollSource, push PushSource, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		poll:     poll,
		push:     push,
		log:      log.With().Str("component", "feed").Logger(),
		Interval: DefaultPollInterval,
		Limit:    DefaultCapacity,
	}
}

// Session is the live feed of one address. Its state is owned by a single
// goroutine; readers get copies.
type Session struct {
	id       identity.Identity
	onChange func([]models.ActivityItem)
	log      zerolog.Logger

	mu  sync.RWMutex
	buf *Buffer

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Attach starts a session: it subscribes to the push source, polls once right
// away and then on every interval. onChange, if set, receives a snapshot after
// every change and is called from the session goroutine.
func (r *Reconciler) Attach(ctx context.Context, id identity.Identity, onChange func([]models.ActivityItem)) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:       id,
		onChange: onChange,
		log:      r.log.With().Str("address", id.String()).Logger(),
		buf:      NewBuffer(r.Limit),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	var pushCh <-chan models.ActivityItem
	if r.push != nil {
		ch, err := r.push.Subscribe(ctx, id.String())
		if err != nil {
			s.log.Warn().Err(&TransportError{Op: "subscribe", Err: err}).Msg("push unavailable, polling only")
		} else {
			pushCh = ch
		}
	}

	go s.run(ctx, r, pushCh)
	return s
}

type pollResult struct {
	items []models.ActivityItem
	err   error
}

func (s *Session) run(ctx context.Context, r *Reconciler, pushCh <-chan models.ActivityItem) {
	defer close(s.done)

	// Polls run beside the loop so a slow request never holds back pushed
	// items; at most one is in flight.
	var polls sync.WaitGroup
	results := make(chan pollResult, 1)
	inFlight := false
	startPoll := func() {
		if inFlight {
			return
		}
		inFlight = true
		polls.Add(1)
		go func() {
			defer polls.Done()
			items, err := r.poll.GetFeed(ctx, s.id.String(), r.Limit)
			results <- pollResult{items: items, err: err}
		}()
	}

	defer func() {
		polls.Wait()
		// wait for the push transport to tear down
		if pushCh != nil {
			for range pushCh {
			}
		}
	}()

	startPoll()

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case item, ok := <-pushCh:
			if !ok {
				pushCh = nil
				continue
			}
			s.mu.Lock()
			s.buf.Push(item)
			snap := s.buf.Items()
			s.mu.Unlock()
			s.notify(snap)
		case res := <-results:
			inFlight = false
			s.applyPoll(ctx, res)
		case <-ticker.C:
			startPoll()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) applyPoll(ctx context.Context, res pollResult) {
	if ctx.Err() != nil {
		return
	}
	if res.err != nil {
		s.log.Warn().Err(res.err).Msg("feed poll failed, keeping current items")
		return
	}
	s.mu.Lock()
	s.buf.Replace(res.items)
	snap := s.buf.Items()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) notify(snap []models.ActivityItem) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Session) Identity() identity.Identity { return s.id }

// Items returns a snapshot of the feed, newest first.
func (s *Session) Items() []models.ActivityItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf.Items()
}

// Close cancels the timers and the push connection and waits for both to
// stop. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}
