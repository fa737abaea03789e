package order

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderRef returns an opaque reference such as "ORD-LZ3K9Q1A-7HX2QF".
func NewOrderRef() string {
	return "ORD-" + strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)) + "-" + randomCode(6)
}

// NewReferralCode returns a short shareable referral code.
func NewReferralCode() string {
	return "KH" + randomCode(8)
}

func randomCode(n int) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(refAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(time.Now().UnixNano() % int64(len(refAlphabet)))
		}
		sb.WriteByte(refAlphabet[idx.Int64()])
	}
	return sb.String()
}
