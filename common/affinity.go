package common

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// ThreadAffinity records the goroutine that created an object and asserts that later calls
// arrive on the same goroutine. UI objects in this module are only ever driven from the
// goroutine that owns the locked main OS thread; a call from anywhere else is a programmer error.
//
// The zero value is unbound and accepts every caller.
type ThreadAffinity struct {
	owner uint64
	name  string
}

// NewThreadAffinity binds a new affinity guard to the calling goroutine.
//
// Parameters:
//   - name: the owning object's name, used in panic messages
//
// Returns:
//   - ThreadAffinity: a guard bound to the current goroutine
func NewThreadAffinity(name string) ThreadAffinity {
	return ThreadAffinity{owner: currentGoroutineID(), name: name}
}

// Check panics if the caller is not the goroutine the guard was bound to.
//
// Parameters:
//   - op: the operation being entered, used in the panic message
func (a ThreadAffinity) Check(op string) {
	if a.owner == 0 {
		return
	}
	if id := currentGoroutineID(); id != a.owner {
		panic(fmt.Sprintf("%s.%s called from goroutine %d, but %s is bound to goroutine %d", a.name, op, id, a.name, a.owner))
	}
}

// currentGoroutineID parses the running goroutine's id out of its stack header,
// which has the form "goroutine 18 [running]:".
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
