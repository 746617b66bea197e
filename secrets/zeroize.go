package secrets

import "runtime"

// zeroize overwrites a byte slice with zeros to clear secret material from
// memory. Go's garbage collector gives no timing guarantee, so buffers
// holding decoded secrets are cleared as soon as they are no longer needed.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b) // Prevent dead code elimination
}
