package affiliates

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const couponRandomChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCouponCode builds a coupon code of the form
// <PREFIX>-<base36 timestamp>-<3 random chars>. The timestamp keeps codes
// roughly sortable and the random suffix keeps concurrent generations apart,
// but uniqueness is advisory: the database index is the authority and the
// caller retries on conflict.
func GenerateCouponCode(prefix string, now time.Time) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("coupon prefix is required")
	}

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = couponRandomChars[int(b)%len(couponRandomChars)]
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.Unix(), 36))
	return fmt.Sprintf("%s-%s-%s", prefix, stamp, suffix), nil
}
