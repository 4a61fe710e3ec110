// Package tradelock serializes the mutations of a trade and of its disputes.
package tradelock

import "sync"

// Locker holds one mutex per trade id. Mutexes are not reentrant: code
// running under Run must never call Run for the same trade.
type Locker struct {
	locks sync.Map
}

func New() *Locker {
	return &Locker{}
}

func (l *Locker) tradeLock(tradeId string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(tradeId, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Lock acquires the mutex of the trade and returns the unlock func.
func (l *Locker) Lock(tradeId string) func() {
	mu := l.tradeLock(tradeId)
	mu.Lock()
	return mu.Unlock
}

// Run executes fn while holding the mutex of the trade.
func (l *Locker) Run(tradeId string, fn func()) {
	unlock := l.Lock(tradeId)
	defer unlock()
	fn()
}
