package room

import "math/rand/v2"

const (
	// Alphabet is the character set room codes are drawn from.
	Alphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultCodeLength = 4
)

// Generator draws fixed-length codes from Alphabet. It is not safe for
// concurrent use; the Registry only calls it while holding its lock.
type Generator struct {
	length int
	intN   func(int) int
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &Generator{length: length, intN: rand.IntN}
}

// NewSeededGenerator returns a reproducible generator, used by tests.
func NewSeededGenerator(length int, seed uint64) *Generator {
	g := NewGenerator(length)
	g.intN = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).IntN
	return g
}

func (g *Generator) Length() int {
	return g.length
}

// Generate keeps drawing candidates until taken reports the code is free.
// It never terminates if every code of this length is taken.
func (g *Generator) Generate(taken func(code string) bool) string {
	buf := make([]byte, g.length)
	for {
		for i := range buf {
			buf[i] = Alphabet[g.intN(len(Alphabet))]
		}
		code := string(buf)
		if !taken(code) {
			return code
		}
	}
}
