// internal/lobby/ids.go
package lobby

import (
	"math/rand"
	"sync"
)

// shortCodeAlphabet keeps codes easy to read out loud; 36^6 combinations.
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// shortCodeLength is the length of a human-shareable room code.
const shortCodeLength = 6

// NewShortCodeGenerator returns a code generator drawing from src, so tests
// can supply deterministic entropy. The generator is safe for concurrent use.
func NewShortCodeGenerator(src rand.Source) func() string {
	r := rand.New(src)
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		code := make([]byte, shortCodeLength)
		for i := range code {
			code[i] = shortCodeAlphabet[r.Intn(len(shortCodeAlphabet))]
		}
		return string(code)
	}
}
