package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber builds a human-referenceable order number from the
// millisecond timestamp and a random base36 suffix. Uniqueness is enforced
// by the orders table; callers retry on collision.
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 9)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("ORD-%d-%09d", now.UnixMilli(), now.Nanosecond())
	}
	for i, b := range suffix {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
