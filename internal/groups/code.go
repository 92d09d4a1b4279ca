package groups

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodePolicy bounds room code generation.
type CodePolicy struct {
	Length         int
	Retries        int
	FallbackLength int
}

func (p CodePolicy) withDefaults() CodePolicy {
	if p.Length <= 0 {
		p.Length = 6
	}
	if p.Retries <= 0 {
		p.Retries = 5
	}
	if p.FallbackLength <= p.Length {
		p.FallbackLength = p.Length + 4
	}
	return p
}

// RandomCode returns n characters from the room code alphabet.
func RandomCode(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf)
}

// allocateCode tries short codes against exists, then falls back to one longer code.
func allocateCode(ctx context.Context, policy CodePolicy, gen func(int) string, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < policy.Retries; attempt++ {
		code := gen(policy.Length)
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return gen(policy.FallbackLength), nil
}
