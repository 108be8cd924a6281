package util

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const runIDLength = 21

const runIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_-"

// NewRunID returns a random identifier for an evaluation or prediction run.
func NewRunID() (string, error) {
	id, err := gonanoid.New(runIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}
	return id, nil
}

// IsRunID reports whether s has the shape of an id returned by NewRunID.
func IsRunID(s string) bool {
	if len(s) != runIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isRunIDChar(s[i]) {
			return false
		}
	}
	return true
}

func isRunIDChar(c byte) bool {
	for i := 0; i < len(runIDAlphabet); i++ {
		if runIDAlphabet[i] == c {
			return true
		}
	}
	return false
}
