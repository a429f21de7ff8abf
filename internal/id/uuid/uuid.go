// Package uuid provides ID generation for audit records.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator mints random (v4) UUID strings. Audit identifiers are random by
// contract: concurrent audits of the same site must never collide.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a fresh UUIDv4 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}
