package ratelimiter

import "sync"

// Gate admits at most one in-flight invocation per chat.
type Gate struct {
	busy map[int64]struct{}
	mu   sync.Mutex
}

func NewGate() *Gate {
	return &Gate{
		busy: make(map[int64]struct{}),
	}
}

// TryAcquire reports false when chatID already holds the gate. The returned
// release func must be called exactly once after a successful acquire.
func (g *Gate) TryAcquire(chatID int64) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[chatID]; ok {
		return nil, false
	}
	g.busy[chatID] = struct{}{}

	var once sync.Once

	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, chatID)
			g.mu.Unlock()
		})
	}, true
}
