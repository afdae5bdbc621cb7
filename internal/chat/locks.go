package chat

import "sync"

// keyedMutex serializes compare-and-act sequences per key: direct-chat
// lookup-or-create per member pair, delete-and-purge per room. Mutexes are
// kept for the process lifetime; the set is bounded by the rooms and pairs
// this instance has touched.
type keyedMutex struct {
	mus sync.Map // key -> *sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
