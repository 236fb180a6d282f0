package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"

	"preflop-coach/server/llm"
)

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 1000
	DefaultMaxMessages = 50
)

type Options struct {
	TTL         time.Duration // idle time before a session is dropped
	MaxSessions int           // least recently used sessions go first
	MaxMessages int           // oldest messages are trimmed past this
}

type entry struct {
	id       string
	messages []llm.Message
	lastUsed time.Time
}

// Store keeps per-session chat history bounded in count, size and age.
type Store struct {
	mu    sync.Mutex
	clock quartz.Clock
	opts  Options
	order *list.List // front = most recently used
	items map[string]*list.Element
}

func New(clock quartz.Clock, opts Options) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	return &Store{clock: clock, opts: opts, order: list.New(), items: map[string]*list.Element{}}
}

// lookup returns the live entry for id, dropping it if it has expired.
// Caller holds mu.
func (s *Store) lookup(id string, now time.Time) *list.Element {
	el, ok := s.items[id]
	if !ok {
		return nil
	}
	if now.Sub(el.Value.(*entry).lastUsed) > s.opts.TTL {
		s.remove(el)
		return nil
	}
	return el
}

func (s *Store) remove(el *list.Element) {
	s.order.Remove(el)
	delete(s.items, el.Value.(*entry).id)
}

// Append adds messages to id's history, creating the session if needed.
func (s *Store) Append(id string, msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	el := s.lookup(id, now)
	if el == nil {
		el = s.order.PushFront(&entry{id: id})
		s.items[id] = el
		for s.order.Len() > s.opts.MaxSessions {
			s.remove(s.order.Back())
		}
	} else {
		s.order.MoveToFront(el)
	}
	e := el.Value.(*entry)
	e.lastUsed = now
	e.messages = append(e.messages, msgs...)
	if over := len(e.messages) - s.opts.MaxMessages; over > 0 {
		e.messages = append([]llm.Message(nil), e.messages[over:]...)
	}
}

// History returns a copy of the last n messages (all when n <= 0) and marks
// the session as used.
func (s *Store) History(id string, n int) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	el := s.lookup(id, now)
	if el == nil {
		return nil
	}
	s.order.MoveToFront(el)
	e := el.Value.(*entry)
	e.lastUsed = now
	msgs := e.messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]llm.Message(nil), msgs...)
}

// Close forgets id. It reports whether the session existed.
func (s *Store) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[id]
	if ok {
		s.remove(el)
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sweep drops every expired session and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	n := 0
	// The back of the list is the least recently used, so stop at the first
	// live entry.
	for el := s.order.Back(); el != nil; {
		if now.Sub(el.Value.(*entry).lastUsed) <= s.opts.TTL {
			break
		}
		prev := el.Prev()
		s.remove(el)
		n++
		el = prev
	}
	return n
}

// Janitor sweeps every interval until ctx is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) quartz.Waiter {
	if interval <= 0 {
		interval = time.Minute
	}
	return s.clock.TickerFunc(ctx, interval, func() error {
		s.Sweep()
		return nil
	}, "session", "sweep")
}
