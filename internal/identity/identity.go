// Package identity derives node identifiers.
//
// Every node gets a FullID, a 128-bit content address over its document,
// span, kind and bytes, and a ShortID, a 4-symbol Crockford base32 code
// derived from hash(FullID || nonce). Short ids are globally unique: when a
// candidate is taken the nonce is incremented and the code recomputed. The
// winning nonce is stored with the node, so the mapping can be verified
// from (FullID, nonce) alone.
package identity

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// Alphabet is the Crockford base32 alphabet, lowercase.
const Alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const (
	// ShortIDLen is the number of symbols in a short id.
	ShortIDLen = 4

	// Capacity is the number of distinct short ids.
	Capacity = 1 << (5 * ShortIDLen)

	// MaxNonce bounds the collision search for one node.
	MaxNonce = 1 << 16

	// secondSeed seeds the upper half of the 128-bit full id.
	secondSeed uint64 = 0x9e3779b97f4a7c15
)

// Checker reports whether a short id is already assigned.
type Checker interface {
	ShortIDTaken(ctx context.Context, shortID string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, shortID string) (bool, error)

// ShortIDTaken calls f.
func (f CheckerFunc) ShortIDTaken(ctx context.Context, shortID string) (bool, error) {
	return f(ctx, shortID)
}

// Input is the content a node is addressed by.
type Input struct {
	DocID   string
	Start   int64
	End     int64
	Kind    domain.NodeKind
	Content []byte
}

// Assignment is the result of Assign.
type Assignment struct {
	FullID  string
	ShortID string
	Nonce   int
}

// Assigner computes identifiers.
type Assigner struct {
	shortHash func([]byte) uint64
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithShortHash replaces the short-code hash. Tests use it to force
// collisions.
func WithShortHash(h func([]byte) uint64) Option {
	return func(a *Assigner) {
		if h != nil {
			a.shortHash = h
		}
	}
}

// New creates an Assigner.
func New(opts ...Option) *Assigner {
	a := &Assigner{shortHash: xxhash.Sum64}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FullID returns the hex content address of in.
func FullID(in Input) string {
	var frame [8]byte
	lo := xxhash.New()
	hi := xxhash.NewWithSeed(secondSeed)
	write := func(b []byte) {
		_, _ = lo.Write(b)
		_, _ = hi.Write(b)
	}

	write([]byte(in.DocID))
	write([]byte{0})
	binary.BigEndian.PutUint64(frame[:], uint64(in.Start))
	write(frame[:])
	binary.BigEndian.PutUint64(frame[:], uint64(in.End))
	write(frame[:])
	write([]byte(in.Kind))
	write([]byte{0})
	write(in.Content)

	var sum [16]byte
	binary.BigEndian.PutUint64(sum[:8], hi.Sum64())
	binary.BigEndian.PutUint64(sum[8:], lo.Sum64())
	return hex.EncodeToString(sum[:])
}

// ShortID returns the candidate short id of fullID at nonce.
func (a *Assigner) ShortID(fullID string, nonce int) string {
	buf := make([]byte, 0, len(fullID)+8)
	buf = append(buf, fullID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(nonce))
	return encode(a.shortHash(buf) >> (64 - 5*ShortIDLen))
}

// Verify reports whether shortID is what fullID yields at nonce.
func (a *Assigner) Verify(fullID string, nonce int, shortID string) bool {
	norm, ok := Normalize(shortID)
	return ok && a.ShortID(fullID, nonce) == norm
}

// Assign computes the identifiers of in, resolving short id collisions
// against taken.
func (a *Assigner) Assign(ctx context.Context, taken Checker, in Input) (Assignment, error) {
	return a.AssignFrom(ctx, taken, FullID(in), 0)
}

// AssignFrom resolves a short id for fullID starting at nonce. Stores call
// it again with nonce+1 when an insert loses a uniqueness race.
func (a *Assigner) AssignFrom(ctx context.Context, taken Checker, fullID string, nonce int) (Assignment, error) {
	for ; nonce < MaxNonce; nonce++ {
		if err := ctx.Err(); err != nil {
			return Assignment{}, err
		}
		candidate := a.ShortID(fullID, nonce)
		used, err := taken.ShortIDTaken(ctx, candidate)
		if err != nil {
			return Assignment{}, fmt.Errorf("checking short id %s: %w", candidate, err)
		}
		if !used {
			return Assignment{FullID: fullID, ShortID: candidate, Nonce: nonce}, nil
		}
	}
	return Assignment{}, fmt.Errorf("%w: no free short id for %s after %d attempts", domain.ErrCapacity, fullID, MaxNonce)
}

// Normalize canonicalises a user-supplied short id: lowercase, with the
// Crockford aliases i/l -> 1 and o -> 0. It reports false if the result is
// not a well-formed short id.
func Normalize(s string) (string, bool) {
	if len(s) != ShortIDLen {
		return "", false
	}
	var b strings.Builder
	b.Grow(ShortIDLen)
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'i', 'l':
			r = '1'
		case 'o':
			r = '0'
		}
		if !strings.ContainsRune(Alphabet, r) {
			return "", false
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// encode renders the low 20 bits of v as ShortIDLen symbols.
func encode(v uint64) string {
	var out [ShortIDLen]byte
	for i := ShortIDLen - 1; i >= 0; i-- {
		out[i] = Alphabet[v&31]
		v >>= 5
	}
	return string(out[:])
}
