package checkout

import (
	"regexp"
	"testing"
	"time"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^ORD-\d{13}-[0-9A-Z]{9}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := GenerateOrderNumber(now)
		if !pattern.MatchString(n) {
			t.Fatalf("order number %q does not match format", n)
		}
		if seen[n] {
			t.Fatalf("duplicate order number %q in 100 draws", n)
		}
		seen[n] = true
	}
}
