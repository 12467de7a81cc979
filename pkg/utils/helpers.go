package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// RandomHex returns 2n hex characters of randomness, used for request ids.
// If the system source fails it falls back to the clock so callers always get
// an id.
func RandomHex(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		s := strconv.FormatInt(time.Now().UnixNano(), 16)
		for len(s) < 2*n {
			s = "0" + s
		}
		return s[len(s)-2*n:]
	}
	return hex.EncodeToString(b)
}
