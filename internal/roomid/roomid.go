// Package roomid generates short join codes for rooms and opaque
// identifiers for connections.
package roomid

import (
	"crypto/rand"
	"fmt"
)

// Room codes avoid lookalike characters so they survive being read
// aloud or typed from a phone screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a room join code
const CodeLength = 6

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator produces room codes with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource falls back to
// crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Code returns a new CodeLength-character room code, sampled uniformly
// from the code alphabet.
func (g *Generator) Code() string {
	buf := make([]byte, CodeLength)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = codeAlphabet[g.randSource.IntN(len(codeAlphabet))]
		}
		return string(buf)
	}
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf)
}

// Code returns a new room code using crypto/rand
func Code() string {
	return NewGenerator(nil).Code()
}

// Token returns a 16-byte random hex token, used for per-connection
// player identifiers.
func Token() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	return fmt.Sprintf("%x", buf)
}

// Validate checks that a room code has the right length and alphabet
func Validate(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("room code must be exactly %d characters, got %d", CodeLength, len(code))
	}
	for i, char := range code {
		valid := false
		for _, validChar := range codeAlphabet {
			if char == validChar {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
