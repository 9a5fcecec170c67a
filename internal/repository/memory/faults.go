// Package memory holds in-process implementations of the repository interfaces
// with error injection and call tracking, used to exercise services without MongoDB or Neo4j.
package memory

import (
	"sync"
)

// Faults records calls per operation and returns injected errors.
type Faults struct {
	mu    sync.Mutex
	errs  map[string]error
	calls map[string]int
}

func newFaults() *Faults {
	return &Faults{errs: make(map[string]error), calls: make(map[string]int)}
}

// Fail makes every later call to op return err. A nil err clears the fault.
func (f *Faults) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Calls returns how many times op was invoked.
func (f *Faults) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faults) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}
