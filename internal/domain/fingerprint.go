package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint is the hex-encoded SHA-256 digest of a normalized Request.
// Two requests that normalize to the same value always share a fingerprint,
// which is the correctness prerequisite for both the content cache and the
// history ledger. Hash collisions are treated as equality (accepted
// cryptographic-hash risk).
type Fingerprint string

// canonicalRequest fixes the field order and shape of the hashed
// representation. Changing this struct invalidates every stored fingerprint,
// so fields are only ever appended with omitempty semantics preserved.
type canonicalRequest struct {
	ResourceKinds  []ResourceKind `json:"resource_kinds"`
	Topic          string         `json:"topic"`
	Subject        string         `json:"subject"`
	GradeLevel     string         `json:"grade_level"`
	Language       string         `json:"language"`
	SectionCount   int            `json:"section_count"`
	Standards      []string       `json:"standards"`
	SharedResearch bool           `json:"shared_research"`
}

// Fingerprint computes the request's content fingerprint. Pure function: no
// I/O, no side effects. The receiver must be a normalized Request produced by
// NewRequest or ForKind.
func (r Request) Fingerprint() Fingerprint {
	canonical := canonicalRequest{
		ResourceKinds:  r.ResourceKinds,
		Topic:          r.Topic,
		Subject:        r.Subject,
		GradeLevel:     r.GradeLevel,
		Language:       r.Language,
		SectionCount:   r.SectionCount,
		Standards:      r.Standards,
		SharedResearch: r.SharedResearch,
	}
	if canonical.Standards == nil {
		canonical.Standards = []string{}
	}

	// Marshaling a struct emits fields in declaration order, so the digest
	// input is deterministic.
	data, err := json.Marshal(canonical)
	if err != nil {
		// A struct of strings, ints, and bools cannot fail to marshal.
		// ALLOW-PANIC: unreachable without a programming error.
		panic("fingerprint: marshal canonical request: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// String returns the hex digest.
func (f Fingerprint) String() string {
	return string(f)
}
