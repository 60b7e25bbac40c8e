package shopx

import (
	"sync"

	"go.uber.org/zap"
)

// ChangeSource tells subscribers which emitter reported a session change.
type ChangeSource string

const (
	// SourceLogin and SourceLogout are fired by the login flow.
	SourceLogin  ChangeSource = "login"
	SourceLogout ChangeSource = "logout"

	// SourceGuard is fired when the guard erases a rejected record.
	SourceGuard ChangeSource = "guard"

	// SourceStorage is fired when the session key changed in the shared
	// store, possibly from another process.
	SourceStorage ChangeSource = "storage"
)

// SessionChange is delivered to subscribers whenever the session record of
// a client may have changed. Subscribers must re-read the record from
// storage; the change carries no session data.
type SessionChange struct {
	Client string
	Source ChangeSource
}

// SessionEvents is the single place to subscribe to session changes. It is
// fed by two emitters: Notify, called in-process by login, logout and the
// guard, and an optional Broadcaster reporting writes made through any
// process sharing the store. Both end up in the same dispatch.
type SessionEvents struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]func(SessionChange)
	nextID uint64
	logger *zap.Logger
}

// NewSessionEvents returns an empty hub.
func NewSessionEvents(logger *zap.Logger) *SessionEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEvents{
		subs:   make(map[string]map[uint64]func(SessionChange)),
		logger: logger,
	}
}

// Subscribe registers fn for changes of client. The returned function
// removes the subscription; calling it more than once is safe.
func (e *SessionEvents) Subscribe(client string, fn func(SessionChange)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	if e.subs[client] == nil {
		e.subs[client] = make(map[uint64]func(SessionChange))
	}
	e.subs[client][id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs[client], id)
			if len(e.subs[client]) == 0 {
				delete(e.subs, client)
			}
		})
	}
}

// Notify reports an in-process session change for client.
func (e *SessionEvents) Notify(client string, source ChangeSource) {
	e.dispatch(SessionChange{Client: client, Source: source})
}

// Listen feeds changes announced by b into the hub until stop is closed.
// Only announcements for SessionKey are dispatched.
func (e *SessionEvents) Listen(b Broadcaster, stop <-chan struct{}) error {
	return b.Listen(stop, func(storeKey string) {
		client, key, ok := SplitStoreKey(storeKey)
		if !ok || key != SessionKey {
			return
		}
		e.dispatch(SessionChange{Client: client, Source: SourceStorage})
	})
}

// Subscribers returns the number of subscriptions for client.
func (e *SessionEvents) Subscribers(client string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[client])
}

func (e *SessionEvents) dispatch(change SessionChange) {
	e.mu.RLock()
	fns := make([]func(SessionChange), 0, len(e.subs[change.Client]))
	for _, fn := range e.subs[change.Client] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	e.logger.Debug("session changed",
		zap.String("client", change.Client),
		zap.String("source", string(change.Source)),
		zap.Int("subscribers", len(fns)))

	for _, fn := range fns {
		fn(change)
	}
}
