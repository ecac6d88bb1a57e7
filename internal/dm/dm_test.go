package dm

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestConversationRoundTrip(t *testing.T) {
	alice, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	bob, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	a := OpenConversation(alice, bob.Public)
	b := OpenConversation(bob, alice.Public)

	plain := []byte("gm, ser")
	sealed := a.Seal(plain)

	got, err := b.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %q, want %q", got, plain)
	}

	// The same plaintext must not produce the same ciphertext twice.
	if a.Seal(plain) == sealed {
		t.Error("nonce reuse across Seal calls")
	}
}

func TestConversationTamper(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	a := OpenConversation(alice, bob.Public)
	b := OpenConversation(bob, alice.Public)

	sealed := a.Seal([]byte("secret"))
	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := b.Open(tampered); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("err = %v, want ErrDecrypt", err)
	}
}

func TestConversationWrongPeer(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	eve, _ := GenerateKeyPair()

	a := OpenConversation(alice, bob.Public)
	e := OpenConversation(eve, alice.Public)

	sealed := a.Seal([]byte("secret"))
	if _, err := e.Open(sealed); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("err = %v, want ErrDecrypt", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	a := OpenConversation(alice, bob.Public)

	for _, sealed := range []string{"", "not base64!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := a.Open(sealed); !errors.Is(err, ErrDecrypt) {
			t.Errorf("Open(%q) err = %v, want ErrDecrypt", sealed, err)
		}
	}
}
