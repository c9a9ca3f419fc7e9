package theme

import (
	"strings"
	"sync"
)

// SystemSignal reports the platform's preferred color scheme.
type SystemSignal interface {
	// Current returns the reported mode, or false when there is no signal
	// (for example when rendering outside a browser).
	Current() (Mode, bool)

	// Subscribe registers fn for changes of the reported mode and returns a
	// function that releases the subscription. Releasing twice is a no-op.
	Subscribe(fn func(Mode)) (unsubscribe func())
}

// Broadcaster is a settable SystemSignal that fans changes out to its
// subscribers. Subscribers run on the goroutine calling Set, outside the
// broadcaster's lock.
type Broadcaster struct {
	mu    sync.Mutex
	mode  Mode
	known bool
	next  uint64
	subs  map[uint64]func(Mode)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]func(Mode))}
}

// Current implements SystemSignal.
func (b *Broadcaster) Current() (Mode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode, b.known
}

// Set records a new system mode. Subscribers are only notified when the
// value actually changes.
func (b *Broadcaster) Set(mode Mode) {
	if !mode.Valid() {
		return
	}

	b.mu.Lock()
	if b.known && b.mode == mode {
		b.mu.Unlock()
		return
	}
	b.mode = mode
	b.known = true
	subs := make([]func(Mode), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(mode)
	}
}

// Subscribe implements SystemSignal.
func (b *Broadcaster) Subscribe(fn func(Mode)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers reports how many live subscriptions exist.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// StaticSignal is a SystemSignal that never changes.
type StaticSignal struct {
	mode  Mode
	known bool
}

// NoSignal is used when no system preference can be observed at all.
var NoSignal = StaticSignal{}

func NewStaticSignal(mode Mode) StaticSignal {
	return StaticSignal{mode: mode, known: mode.Valid()}
}

func (s StaticSignal) Current() (Mode, bool) { return s.mode, s.known }

func (StaticSignal) Subscribe(func(Mode)) func() { return func() {} }

// ParseHint reads a Sec-CH-Prefers-Color-Scheme header value, which is a
// structured-field string such as `"dark"`.
func ParseHint(value string) (Mode, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	mode, err := ParseMode(value)
	if err != nil {
		return "", false
	}
	return mode, true
}
