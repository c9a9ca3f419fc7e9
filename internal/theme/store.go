package theme

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Store is the single owner of one visitor's theme state.
//
// While the source is system the store holds exactly one subscription on
// the system signal and follows it. Setting an explicit mode releases that
// subscription; Reset acquires a fresh one. Storage failures never reach the
// caller: the store logs them once and continues on memory-only storage.
type Store struct {
	mu          sync.Mutex
	storage     Storage
	signal      SystemSignal
	logger      *log.Logger
	current     Preference
	unsubscribe func()
	generation  uint64
	observers   []*observer
	degraded    bool
	closed      bool
	done        chan struct{}
}

type observer struct {
	fn func(Preference)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage degradation warnings.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore resolves the initial preference and, when it follows the system,
// subscribes to the signal. A nil signal behaves like NoSignal; nil or
// unreadable storage is replaced by a MemoryStorage.
func NewStore(storage Storage, signal SystemSignal, opts ...Option) *Store {
	if signal == nil {
		signal = NoSignal
	}
	s := &Store{
		storage: storage,
		signal:  signal,
		logger:  log.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.storage == nil {
		s.storage = NewMemoryStorage()
		s.degraded = true
	} else if _, _, err := s.storage.Get(KeyUseSystem); err != nil {
		s.logger.Warn("theme storage unavailable, keeping preference in memory", "error", err)
		s.storage = NewMemoryStorage()
		s.degraded = true
	}

	s.current = Resolve(s.storage, s.signal)
	if s.current.Source == SourceSystem {
		s.subscribeLocked()
	}
	return s
}

// Initial re-reads the persisted state as a page load would, without
// changing the live store.
func (s *Store) Initial() Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Resolve(s.storage, s.signal)
}

// Current returns the live preference.
func (s *Store) Current() Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Degraded reports whether the store fell back to memory-only storage.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// SetExplicit persists mode as the visitor's choice. Live system changes are
// ignored until Reset.
func (s *Store) SetExplicit(mode Mode) (Preference, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	pref, notify := s.setExplicitLocked(mode)
	s.mu.Unlock()

	notify()
	return pref, nil
}

// Toggle flips the current mode and stores the result as explicit.
func (s *Store) Toggle() Preference {
	s.mu.Lock()
	pref, notify := s.setExplicitLocked(s.current.Mode.Opposite())
	s.mu.Unlock()

	notify()
	return pref
}

func (s *Store) setExplicitLocked(mode Mode) (Preference, func()) {
	s.releaseLocked()
	s.persistLocked(
		Change{Key: KeyUseSystem, Value: "false"},
		Change{Key: KeyMode, Value: string(mode)},
	)
	return s.updateLocked(Preference{Mode: mode, Source: SourceExplicit})
}

// Reset drops the explicit choice and follows the system signal again,
// resyncing to its current value immediately.
func (s *Store) Reset() Preference {
	s.mu.Lock()
	s.persistLocked(
		Change{Key: KeyUseSystem, Value: "true"},
		Change{Key: KeyMode, Remove: true},
	)
	if !s.closed && s.unsubscribe == nil {
		s.subscribeLocked()
	}
	pref, notify := s.updateLocked(Preference{Mode: systemMode(s.signal), Source: SourceSystem})
	s.mu.Unlock()

	notify()
	return pref
}

// OnChange registers fn for every change of the live preference and returns
// a function that removes it.
func (s *Store) OnChange(fn func(Preference)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := &observer{fn: fn}
	s.observers = append(s.observers, o)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.observers {
			if cur == o {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Close releases the system subscription and drops all observers. The store
// keeps answering Current afterwards but no longer follows the signal.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.releaseLocked()
	s.observers = nil
	close(s.done)
}

// Done is closed when the store is closed. Observers that outlive a
// request select on it to learn their registration is gone.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

func (s *Store) subscribeLocked() {
	s.generation++
	gen := s.generation
	s.unsubscribe = s.signal.Subscribe(func(Mode) {
		s.onSystemChange(gen)
	})
}

func (s *Store) releaseLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	// Invalidate callbacks already in flight from the old subscription.
	s.generation++
}

// onSystemChange applies the signal's value as read under the store lock.
// Deliveries from concurrent Sets can arrive out of order, so the value
// they carry is only a wake-up.
func (s *Store) onSystemChange(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || s.current.Source != SourceSystem {
		s.mu.Unlock()
		return
	}
	_, notify := s.updateLocked(Preference{Mode: systemMode(s.signal), Source: SourceSystem})
	s.mu.Unlock()

	notify()
}

// updateLocked stores next and returns a function that notifies observers
// when it differs from the previous value. The function must run unlocked.
func (s *Store) updateLocked(next Preference) (Preference, func()) {
	if next == s.current {
		return next, func() {}
	}
	s.current = next
	observers := make([]*observer, len(s.observers))
	copy(observers, s.observers)
	return next, func() {
		for _, o := range observers {
			o.fn(next)
		}
	}
}

// persistLocked writes changes in order, as one batch when the storage
// supports it. The use-system flag goes first so that a partial write
// never leaves a mode the flag still overrides.
func (s *Store) persistLocked(changes ...Change) {
	err := writeChanges(s.storage, changes)
	if err == nil {
		return
	}

	s.logger.Warn("theme storage write failed, keeping preference in memory", "error", err)
	mem := NewMemoryStorage()
	if s.current.Source == SourceExplicit {
		_ = mem.Set(KeyMode, string(s.current.Mode))
		_ = mem.Set(KeyUseSystem, "false")
	}
	s.storage = mem
	s.degraded = true
	_ = writeChanges(mem, changes)
}
