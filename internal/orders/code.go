package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	codePrefix    = "ORD"
	codeSuffixLen = 6
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodeGenerator returns a candidate external order code.
type CodeGenerator func(now time.Time) string

// NewCode builds ORD-YYMMDD-XXXXXX with a random suffix.
func NewCode(now time.Time) string {
	return codePrefix + "-" + now.UTC().Format("060102") + "-" + randomString(codeAlphabet, codeSuffixLen)
}

func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf)
}
