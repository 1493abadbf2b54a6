package robokassa

import (
	"math/rand"
	"strconv"
	"time"
)

// NewInvoiceID generates a gateway invoice id: a positive integer built from
// the current microsecond timestamp plus a 3-digit random component.
// Robokassa requires an integer in [1, 2^63-1]; the timestamp base keeps ids
// monotonic-ish and the random tail avoids collisions within one microsecond.
func NewInvoiceID(now time.Time) string {
	n := now.UnixMicro() + int64(100+rand.Intn(900))
	return strconv.FormatInt(n, 10)
}
