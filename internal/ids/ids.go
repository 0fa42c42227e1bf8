package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Suffix returns n random uppercase characters taken from the entropy part
// of a fresh ULID. n is clamped to the 16 characters of entropy a ULID carries.
func Suffix(n int) string {
	if n <= 0 {
		return ""
	}
	if n > 16 {
		n = 16
	}
	id := New()
	return strings.ToUpper(id[len(id)-n:])
}
