package lib

import (
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// IdGenerator names injection runs so that reports can be told apart
type IdGenerator interface {
	// GetId generates a unique ID or an error if something went wrong
	GetId() (string, error)
}

// UUIDGenerator issues random version 4 UUIDs
type UUIDGenerator struct {
}

func (g *UUIDGenerator) GetId() (string, error) {
	id, err := uuid.NewRandom()

	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// SeededIdGenerator draws UUIDs from a seeded source. A seeded run therefore
// reproduces its report id as well as its output
type SeededIdGenerator struct {
	rnd *rand.Rand
}

func NewSeededIdGenerator(seed uint64) *SeededIdGenerator {
	return &SeededIdGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *SeededIdGenerator) GetId() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rnd)

	if err != nil {
		return "", err
	}

	return id.String(), nil
}
