package orders

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// newOrderNumber renders ORD-<unix millis><3 random digits>.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d%03d", now.UnixMilli(), rand.IntN(1000))
}
