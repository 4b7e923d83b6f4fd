package ledger

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/ed25519"
)

// Party is a well-known ledger identity: a legal name bound to a signing key.
// Two parties are the same only if both name and key match.
type Party struct {
	Name string            `json:"name"`
	Key  ed25519.PublicKey `json:"key"`
}

// Equal reports whether p and o denote the same identity.
func (p Party) Equal(o Party) bool {
	return p.Name == o.Name && bytes.Equal(p.Key, o.Key)
}

// IsZero reports whether p is unset.
func (p Party) IsZero() bool {
	return p.Name == "" && len(p.Key) == 0
}

// String returns the party name.
func (p Party) String() string {
	return p.Name
}

// Verify checks sig as p's signature over msg.
func (p Party) Verify(msg, sig []byte) bool {
	if len(p.Key) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(p.Key, msg, sig)
}

// fields returns the canonical form of the party.
func (p Party) fields() map[string]any {
	return map[string]any{
		"name": p.Name,
		"key":  hex.EncodeToString(p.Key),
	}
}

// KeyPair holds a party's signing key.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewKeyPair generates a fresh key pair from r (crypto/rand when nil).
func NewKeyPair(r io.Reader) (KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// KeyPairFromName derives a deterministic key pair from a party name.
// Intended for tests and local demo networks only.
func KeyPairFromName(name string) KeyPair {
	seed := sha256.Sum256([]byte("tradefin/demo-key/v1\x00" + name))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return KeyPair{Public: priv.Public().(ed25519.PublicKey), Private: priv}
}

// Sign signs msg with the private key.
func (k KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// Party binds the public key to a name.
func (k KeyPair) Party(name string) Party {
	return Party{Name: name, Key: k.Public}
}

// ContainsParty reports whether p is in set.
func ContainsParty(set []Party, p Party) bool {
	for _, q := range set {
		if q.Equal(p) {
			return true
		}
	}
	return false
}

// UniqueParties returns parties with duplicates removed, preserving first
// occurrence order.
func UniqueParties(parties ...Party) []Party {
	out := make([]Party, 0, len(parties))
	for _, p := range parties {
		if !ContainsParty(out, p) {
			out = append(out, p)
		}
	}
	return out
}
