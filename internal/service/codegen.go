package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/dafedescribe/wey/internal/repository"
)

const (
	codeLength       = 6
	codeCharset      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxAllocAttempts = 10
)

var codePattern = regexp.MustCompile(fmt.Sprintf(`^[a-zA-Z0-9]{%d}$`, codeLength))

// ValidCode reports whether a code is exactly codeLength alphanumerics.
// Every generated code is checked before it is tried against the registry.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// GenerateCode draws a fixed-length code from a cryptographically strong
// random source.
func GenerateCode() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		result[i] = codeCharset[num.Int64()]
	}
	return string(result), nil
}

// CodeAllocator hands out candidate codes that do not collide with existing
// links at check time. The existence check is only a pre-filter; the insert's
// unique constraint is what finally guarantees uniqueness.
type CodeAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

type codeAllocator struct {
	linkRepo repository.LinkRepository
}

func NewCodeAllocator(linkRepo repository.LinkRepository) CodeAllocator {
	return &codeAllocator{linkRepo: linkRepo}
}

func (a *codeAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		if !ValidCode(code) {
			continue
		}

		exists, err := a.linkRepo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return "", ErrCodeExhausted
}
