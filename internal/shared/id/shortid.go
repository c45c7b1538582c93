package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62 alphabet: 0-9, A-Z, a-z
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// numberAlphabet avoids characters that are easily confused when read aloud (0/O, 1/I).
	numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

	// DefaultLength is the default length for generated short IDs
	DefaultLength = 12

	// TicketNumberLength is the length of the random part of a ticket number.
	TicketNumberLength = 8
)

// Ticket number prefixes.
const (
	PrefixIncident = "INC"
	PrefixProblem  = "PRB"
	PrefixChange   = "CHG"
)

func generateFrom(chars string, length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	charsLen := big.NewInt(int64(len(chars)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = chars[num.Int64()]
	}

	return string(result), nil
}

// Generate creates a random short ID with the specified length using Base62 encoding.
// The generated ID is cryptographically random and URL-safe.
func Generate(length int) (string, error) {
	return generateFrom(alphabet, length)
}

// MustGenerate creates a random short ID and panics on error.
func MustGenerate(length int) string {
	id, err := Generate(length)
	if err != nil {
		panic(err)
	}
	return id
}

// NewTicketNumber creates a human-readable ticket number such as "INC-7K3M9QPX".
func NewTicketNumber(prefix string) (string, error) {
	suffix, err := generateFrom(numberAlphabet, TicketNumberLength)
	if err != nil {
		return "", err
	}
	return prefix + "-" + suffix, nil
}

// ParseTicketNumber splits a ticket number into its prefix and random part.
func ParseTicketNumber(number string) (prefix, suffix string, err error) {
	parts := strings.SplitN(number, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid ticket number format: %s", number)
	}
	return parts[0], parts[1], nil
}
