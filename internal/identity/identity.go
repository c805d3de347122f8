// Package identity generates the throwaway account identities used by a
// journey run.
//
// Each run needs two identities: the primary actor, who registers, logs in
// and moves points, and a recipient who only has to exist. The live service
// keeps every account ever created, so identities must never repeat across
// runs: the CPF is random and the email embeds a millisecond timestamp.
package identity

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Default names and passwords for the two actors.
const (
	PrimaryFullName   = "Usuário Teste Principal"
	PrimaryPassword   = "Password@123"
	RecipientFullName = "Usuário Destinatário"
	RecipientPassword = "Password@456"
)

const (
	cpfMin  = 10_000_000_000
	cpfSpan = 90_000_000_000
)

// Identity is one account the journey registers.
type Identity struct {
	CPF      string
	FullName string
	Email    string
	Password string
}

// Generator produces the identity pair for a run.
type Generator interface {
	Pair() (primary, recipient Identity)
}

// RecipientEmail derives the recipient address from the primary one so the
// two can never collide.
func RecipientEmail(primaryEmail string) string {
	return "recipient." + primaryEmail
}

// RandomGenerator builds unique identities from the wall clock and a random
// source.
//
// Thread-safety: RandomGenerator is safe for concurrent use.
type RandomGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	intn   func(n int64) int64
	lastMS int64
}

// NewRandomGenerator returns a generator backed by time.Now and math/rand/v2.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{now: time.Now, intn: rand.Int64N}
}

// NewRandomGeneratorWith returns a generator using the given clock and random
// source. Intended for tests.
func NewRandomGeneratorWith(now func() time.Time, intn func(n int64) int64) *RandomGenerator {
	return &RandomGenerator{now: now, intn: intn}
}

// CPF returns an 11-digit numeric string.
func (g *RandomGenerator) CPF() string {
	return fmt.Sprintf("%d", cpfMin+g.intn(cpfSpan))
}

// Email returns user<unix-ms>@test.com. Within one process the timestamp is
// bumped when the clock has not advanced, so consecutive calls never repeat.
func (g *RandomGenerator) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastMS {
		ms = g.lastMS + 1
	}
	g.lastMS = ms
	return fmt.Sprintf("user%d@test.com", ms)
}

// Pair implements Generator.
func (g *RandomGenerator) Pair() (Identity, Identity) {
	email := g.Email()
	primary := Identity{
		CPF:      g.CPF(),
		FullName: PrimaryFullName,
		Email:    email,
		Password: PrimaryPassword,
	}
	recipient := Identity{
		CPF:      g.CPF(),
		FullName: RecipientFullName,
		Email:    RecipientEmail(email),
		Password: RecipientPassword,
	}
	// Two draws from 9e10 values colliding is unlikely but not impossible.
	for recipient.CPF == primary.CPF {
		recipient.CPF = g.CPF()
	}
	return primary, recipient
}

// FixedGenerator always returns the same pair. It makes traces reproducible
// for golden comparison.
type FixedGenerator struct {
	Primary   Identity
	Recipient Identity
}

// NewFixedGenerator builds a FixedGenerator from a CPF/email per actor using
// the default names and passwords.
func NewFixedGenerator(primaryCPF, primaryEmail, recipientCPF string) *FixedGenerator {
	return &FixedGenerator{
		Primary: Identity{
			CPF:      primaryCPF,
			FullName: PrimaryFullName,
			Email:    primaryEmail,
			Password: PrimaryPassword,
		},
		Recipient: Identity{
			CPF:      recipientCPF,
			FullName: RecipientFullName,
			Email:    RecipientEmail(primaryEmail),
			Password: RecipientPassword,
		},
	}
}

// Pair implements Generator.
func (g *FixedGenerator) Pair() (Identity, Identity) {
	return g.Primary, g.Recipient
}
