package location

import (
	"context"
	"sync"
	"time"

	dErrors "caretrack/pkg/domain-errors"
)

// Feed is the in-process positioning hub. Devices push fixes in; Current
// serves single-shot acquisitions with cached-fix semantics and Watch hands
// out caller-owned subscriptions.
type Feed struct {
	mu      sync.Mutex
	last    map[string]Reading
	waiters map[string]map[chan update]struct{}
	subs    map[string]map[*Subscription]struct{}

	now func() time.Time
}

type update struct {
	reading Reading
	err     error
}

func NewFeed() *Feed {
	return &Feed{
		last:    make(map[string]Reading),
		waiters: make(map[string]map[chan update]struct{}),
		subs:    make(map[string]map[*Subscription]struct{}),
		now:     time.Now,
	}
}

// Publish records a fix for subject and delivers it to pending acquisitions
// and watchers.
func (f *Feed) Publish(subject string, r Reading) {
	f.mu.Lock()
	f.last[subject] = r
	u := update{reading: r}
	for ch := range f.waiters[subject] {
		ch <- u
	}
	delete(f.waiters, subject)
	subs := make([]*Subscription, 0, len(f.subs[subject]))
	for sub := range f.subs[subject] {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(u)
	}
}

// PublishError delivers a device-side failure (e.g. permission denied, no
// signal) to pending acquisitions and watchers. Errors are transient events
// and do not clear the cached fix.
func (f *Feed) PublishError(subject string, err error) {
	f.mu.Lock()
	u := update{err: err}
	for ch := range f.waiters[subject] {
		ch <- u
	}
	delete(f.waiters, subject)
	subs := make([]*Subscription, 0, len(f.subs[subject]))
	for sub := range f.subs[subject] {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(u)
	}
}

// Current implements Provider. A cached fix younger than opts.MaxAge is
// returned immediately; otherwise the call blocks until the device reports,
// the context ends, or opts.Timeout elapses.
func (f *Feed) Current(ctx context.Context, subject string, opts Options) (Reading, error) {
	f.mu.Lock()
	if r, ok := f.last[subject]; ok && opts.MaxAge > 0 && f.now().Sub(r.CapturedAt) <= opts.MaxAge {
		f.mu.Unlock()
		return r, nil
	}
	ch := make(chan update, 1)
	if f.waiters[subject] == nil {
		f.waiters[subject] = make(map[chan update]struct{})
	}
	f.waiters[subject][ch] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.waiters[subject], ch)
		f.mu.Unlock()
	}()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = HighAccuracyOptions().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case u := <-ch:
		if u.err != nil {
			return Reading{}, u.err
		}
		return u.reading, nil
	case <-timer.C:
		return Reading{}, dErrors.New(dErrors.CodeTimeout, "timed out waiting for a position fix")
	case <-ctx.Done():
		return Reading{}, dErrors.Wrap(dErrors.CodeUnavailable, "location request cancelled", ctx.Err())
	}
}

// Subscription is a caller-owned handle on a device's stream of fixes. The
// subscriber must call Cancel when done or the feed keeps delivering.
type Subscription struct {
	feed    *Feed
	subject string

	updates chan Reading
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

// Watch subscribes to every future fix for subject. There is no implicit
// timeout; only Cancel (or feed teardown) ends delivery.
func (f *Feed) Watch(subject string) *Subscription {
	sub := &Subscription{
		feed:    f,
		subject: subject,
		updates: make(chan Reading, 16),
		errs:    make(chan error, 4),
		done:    make(chan struct{}),
	}
	f.mu.Lock()
	if f.subs[subject] == nil {
		f.subs[subject] = make(map[*Subscription]struct{})
	}
	f.subs[subject][sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Updates yields fixes as they arrive. Slow consumers lose the oldest
// buffered samples rather than blocking the feed.
func (s *Subscription) Updates() <-chan Reading { return s.updates }

// Errs yields device-side failures published while the subscription is live.
func (s *Subscription) Errs() <-chan error { return s.errs }

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel releases the subscription. Idempotent; no final in-flight sample is
// guaranteed after it returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs[s.subject], s)
		s.feed.mu.Unlock()
		close(s.done)
	})
}

func (s *Subscription) deliver(u update) {
	select {
	case <-s.done:
		return
	default:
	}
	if u.err != nil {
		select {
		case s.errs <- u.err:
		default:
		}
		return
	}
	for {
		select {
		case s.updates <- u.reading:
			return
		default:
			// Buffer full: drop the oldest sample and retry.
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
