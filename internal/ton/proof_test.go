package ton

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

// addrHashFor derives the raw address hash the key provider uses.
func addrHashFor(pub ed25519.PublicKey) []byte {
	h := sha256.Sum256(pub)
	return h[:]
}

func TestVerifyProof_ValidSignature(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	addrHash := addrHashFor(pubKey)
	workchain := int32(0)

	proof := Proof{
		Timestamp: time.Now().Unix(),
		Domain: ProofDomain{
			LengthBytes: len("test.example.com"),
			Value:       "test.example.com",
		},
		Payload: "test-nonce-12345",
	}

	SignProof(privKey, workchain, addrHash, &proof)

	err = VerifyProof(hex.EncodeToString(pubKey), addrHash, workchain, proof, []string{"test.example.com"})
	if err != nil {
		t.Fatalf("expected valid proof, got error: %v", err)
	}
}

func TestVerifyProof_ExpiredTimestamp(t *testing.T) {
	pubKey, _, _ := ed25519.GenerateKey(nil)

	proof := Proof{
		Timestamp: time.Now().Add(-10 * time.Minute).Unix(),
		Domain:    ProofDomain{LengthBytes: 4, Value: "test"},
		Payload:   "nonce",
		Signature: hex.EncodeToString(make([]byte, 64)),
	}

	err := VerifyProof(hex.EncodeToString(pubKey), make([]byte, 32), 0, proof, nil)
	if err == nil {
		t.Fatal("expected error for expired proof")
	}
}

func TestVerifyProof_WrongDomain(t *testing.T) {
	pubKey, privKey, _ := ed25519.GenerateKey(nil)
	addrHash := addrHashFor(pubKey)

	proof := Proof{
		Timestamp: time.Now().Unix(),
		Domain:    ProofDomain{LengthBytes: 8, Value: "evil.com"},
		Payload:   "nonce",
	}
	SignProof(privKey, 0, addrHash, &proof)

	err := VerifyProof(hex.EncodeToString(pubKey), addrHash, 0, proof, []string{"chat.example.com"})
	if err == nil {
		t.Fatal("expected error for disallowed domain")
	}
}

func TestVerifyProof_TamperedPayload(t *testing.T) {
	pubKey, privKey, _ := ed25519.GenerateKey(nil)
	addrHash := addrHashFor(pubKey)

	proof := Proof{
		Timestamp: time.Now().Unix(),
		Domain:    ProofDomain{LengthBytes: 4, Value: "test"},
		Payload:   "nonce-a",
	}
	SignProof(privKey, 0, addrHash, &proof)
	proof.Payload = "nonce-b"

	err := VerifyProof(hex.EncodeToString(pubKey), addrHash, 0, proof, nil)
	if err == nil {
		t.Fatal("expected error for tampered payload")
	}
}

func TestVerifyProof_KeyMustMatchAddress(t *testing.T) {
	victimPub, _, _ := ed25519.GenerateKey(nil)
	attackerPub, attackerPriv, _ := ed25519.GenerateKey(nil)

	// The attacker signs a perfectly valid proof with their own key but
	// claims the victim's address.
	victimHash := addrHashFor(victimPub)
	proof := Proof{
		Timestamp: time.Now().Unix(),
		Domain:    ProofDomain{LengthBytes: 4, Value: "test"},
		Payload:   "nonce",
	}
	SignProof(attackerPriv, 0, victimHash, &proof)

	err := VerifyProof(hex.EncodeToString(attackerPub), victimHash, 0, proof, nil)
	if err == nil {
		t.Fatal("proof with an unrelated public key must not verify for the address")
	}

	// The same proof for the attacker's own address still verifies.
	attackerHash := addrHashFor(attackerPub)
	proof.Signature = ""
	SignProof(attackerPriv, 0, attackerHash, &proof)
	if err := VerifyProof(hex.EncodeToString(attackerPub), attackerHash, 0, proof, nil); err != nil {
		t.Fatalf("self-owned proof rejected: %v", err)
	}
}

func TestParseRawAddress(t *testing.T) {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(0xAB)
	}
	raw := "0:" + hex.EncodeToString(hash)

	wc, parsed, err := ParseRawAddress(raw)
	if err != nil {
		t.Fatal(err)
	}
	if wc != 0 {
		t.Errorf("workchain = %d, want 0", wc)
	}
	if hex.EncodeToString(parsed) != hex.EncodeToString(hash) {
		t.Error("hash mismatch")
	}

	if _, _, err := ParseRawAddress("garbage"); err == nil {
		t.Error("expected error for malformed address")
	}
	if _, _, err := ParseRawAddress("0:abcd"); err == nil {
		t.Error("expected error for short hash")
	}
}
