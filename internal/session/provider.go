package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clear reasons reported with EventCleared.
const (
	ReasonLogout       = "logout"
	ReasonExpired      = "expired"
	ReasonInvalid      = "invalid"
	ReasonUnauthorized = "unauthorized"
	ReasonDeleted      = "account_deleted"
)

type EventKind string

const (
	EventWritten EventKind = "written"
	EventCleared EventKind = "cleared"
)

// Event tells subscribers that a session changed.
type Event struct {
	SID    string
	Kind   EventKind
	Reason string
}

// Provider is the single owner of session state. Components receive it (or
// the narrow interfaces it satisfies) instead of reaching into storage.
type Provider struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewProvider(store Store, log *zap.Logger) *Provider {
	if store == nil {
		panic("nil session store")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{store: store, log: log, now: time.Now, subs: make(map[int]chan Event)}
}

// Read returns the valid session for sid. Incomplete, undecodable or
// expired sessions are cleared and reported as absent.
func (p *Provider) Read(ctx context.Context, sid string) (Session, bool) {
	if sid == "" {
		return Session{}, false
	}
	f, err := p.store.Load(ctx, sid)
	if err != nil {
		p.log.Warn("session: load failed", zap.String("sid", sid), zap.Error(err))
		return Session{}, false
	}
	if len(f) == 0 {
		return Session{}, false
	}
	s, err := FromFields(f)
	if err != nil {
		p.log.Info("session: dropping malformed session", zap.String("sid", sid), zap.Error(err))
		_ = p.Clear(ctx, sid, ReasonInvalid)
		return Session{}, false
	}
	if err := s.Check(p.now()); err != nil {
		reason := ReasonInvalid
		if err == ErrTokenExpired {
			reason = ReasonExpired
		}
		_ = p.Clear(ctx, sid, reason)
		return Session{}, false
	}
	return s, true
}

// Write stores all three values of s at once.
func (p *Provider) Write(ctx context.Context, sid string, s Session) error {
	f, err := s.Fields()
	if err != nil {
		return err
	}
	if _, err := FromFields(f); err != nil {
		return err
	}
	if err := p.store.Save(ctx, sid, f); err != nil {
		return err
	}
	p.emit(Event{SID: sid, Kind: EventWritten})
	return nil
}

// Clear removes all three values for sid.
func (p *Provider) Clear(ctx context.Context, sid, reason string) error {
	if err := p.store.Delete(ctx, sid); err != nil {
		p.log.Error("session: clear failed", zap.String("sid", sid), zap.Error(err))
		return err
	}
	p.log.Info("session cleared", zap.String("sid", sid), zap.String("reason", reason))
	p.emit(Event{SID: sid, Kind: EventCleared, Reason: reason})
	return nil
}

// Subscribe delivers session events until cancel is called.
func (p *Provider) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = ch
	p.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Provider) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Sweep re-validates every stored session and returns how many were
// cleared.
func (p *Provider) Sweep(ctx context.Context) int {
	ids, err := p.store.IDs(ctx)
	if err != nil {
		p.log.Warn("session: list failed", zap.Error(err))
		return 0
	}
	cleared := 0
	for _, sid := range ids {
		if _, ok := p.Read(ctx, sid); !ok {
			cleared++
		}
	}
	return cleared
}

// Watch sweeps on every tick of interval until ctx is done.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := p.Sweep(ctx); n > 0 {
				p.log.Info("session sweep", zap.Int("cleared", n))
			}
		}
	}
}

// Token returns the bearer token of the visitor bound to ctx.
func (p *Provider) Token(ctx context.Context) string {
	if v := FromContext(ctx); v != nil && v.Valid {
		return v.Session.Token
	}
	return ""
}

// Expire clears the visitor bound to ctx after the API rejected its token.
func (p *Provider) Expire(ctx context.Context) error {
	v := FromContext(ctx)
	if v == nil || !v.Valid {
		return nil
	}
	v.Valid = false
	v.Session = Session{}
	return p.Clear(ctx, v.ID, ReasonUnauthorized)
}
