// Package dm implements end to end encryption for direct conversations.
// Each side derives a shared key from its curve25519 key pair and the peer's
// public key, messages travel as base64 with the 24-byte nonce prefixed to
// the box.
package dm

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const nonceSize = 24

var ErrDecrypt = errors.New("cannot decrypt message")

// KeyPair holds one side's curve25519 keys.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return &KeyPair{Public: *pub, Private: *priv}, nil
}

// Conversation is a precomputed shared key for one peer. Safe for concurrent
// use, Seal draws a fresh random nonce per message.
type Conversation struct {
	shared [32]byte
}

// OpenConversation derives the shared key for peerPub.
func OpenConversation(kp *KeyPair, peerPub [32]byte) *Conversation {
	c := &Conversation{}
	box.Precompute(&c.shared, &peerPub, &kp.Private)
	return c
}

// Seal encrypts plain and returns base64(nonce || box).
func (c *Conversation) Seal(plain []byte) string {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		// rand.Read only fails when the OS entropy source is broken.
		panic(err)
	}
	sealed := box.SealAfterPrecomputation(nonce[:], plain, &nonce, &c.shared)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Open reverses Seal. Tampered or foreign ciphertext returns ErrDecrypt.
func (c *Conversation) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize {
		return nil, ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := box.OpenAfterPrecomputation(nil, raw[nonceSize:], &nonce, &c.shared)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}
