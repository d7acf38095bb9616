// Package trackcode generates human-shareable tracking codes of the form
// CAREGO-XXNNXX where X is an uppercase letter and N a digit.
package trackcode

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"regexp"
	"sync"
)

const (
	Prefix  = "CAREGO-"
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
)

var pattern = regexp.MustCompile(`^CAREGO-[A-Z]{2}[0-9]{2}[A-Z]{2}$`)

// Valid reports whether code has the generator's format. Storage only
// enforces uniqueness, so codes seeded by other means may not match.
func Valid(code string) bool {
	return pattern.MatchString(code)
}

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Generator drawing from src. A nil src gets a ChaCha8 source
// seeded from crypto/rand.
func New(src rand.Source) *Generator {
	if src == nil {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			// crypto/rand не должен падать, иначе берём seed из глобального генератора
			binary.LittleEndian.PutUint64(seed[:], rand.Uint64())
		}
		src = rand.NewChaCha8(seed)
	}
	return &Generator{rnd: rand.New(src)}
}

// Next returns a new candidate. Uniqueness is the caller's concern.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, 0, len(Prefix)+6)
	b = append(b, Prefix...)
	b = append(b, g.pick(letters), g.pick(letters))
	b = append(b, g.pick(digits), g.pick(digits))
	b = append(b, g.pick(letters), g.pick(letters))
	return string(b)
}

func (g *Generator) pick(alphabet string) byte {
	return alphabet[g.rnd.IntN(len(alphabet))]
}
