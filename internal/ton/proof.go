package ton

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// TonProofPrefix is the fixed item prefix defined by the TON Connect spec.
	// https://docs.ton.org/develop/dapps/ton-connect/sign#checking-ton_proof-on-server-side
	TonProofPrefix = "ton-proof-item-v2/"

	// TonConnectPrefix precedes the SHA256 of the proof message.
	TonConnectPrefix = "ton-connect"

	// MaxProofAge bounds replay of captured proofs.
	MaxProofAge = 5 * time.Minute
)

type Proof struct {
	Timestamp int64       `json:"timestamp"`
	Domain    ProofDomain `json:"domain"`
	Payload   string      `json:"payload"`   // server-issued nonce
	Signature string      `json:"signature"` // hex
}

type ProofDomain struct {
	LengthBytes int    `json:"lengthBytes"`
	Value       string `json:"value"`
}

// ProofDigest computes the digest a wallet signs for a connect proof:
//
//	message  = "ton-proof-item-v2/" ++ workchain(4 LE) ++ address_hash(32)
//	           ++ domain_len(4 LE) ++ domain ++ timestamp(8 LE) ++ payload
//	digest   = sha256(0xffff ++ "ton-connect" ++ sha256(message))
func ProofDigest(workchain int32, addrHash []byte, proof Proof) [32]byte {
	message := []byte(TonProofPrefix)

	wcBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(wcBytes, uint32(workchain))
	message = append(message, wcBytes...)

	message = append(message, addrHash...)

	domainLenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(domainLenBytes, uint32(proof.Domain.LengthBytes))
	message = append(message, domainLenBytes...)
	message = append(message, []byte(proof.Domain.Value)...)

	tsBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(tsBytes, uint64(proof.Timestamp))
	message = append(message, tsBytes...)

	message = append(message, []byte(proof.Payload)...)

	msgHash := sha256.Sum256(message)

	signatureMessage := []byte{0xff, 0xff}
	signatureMessage = append(signatureMessage, []byte(TonConnectPrefix)...)
	signatureMessage = append(signatureMessage, msgHash[:]...)

	return sha256.Sum256(signatureMessage)
}

// SignProof fills proof.Signature using the wallet's ed25519 key.
func SignProof(priv ed25519.PrivateKey, workchain int32, addrHash []byte, proof *Proof) {
	digest := ProofDigest(workchain, addrHash, *proof)
	proof.Signature = hex.EncodeToString(ed25519.Sign(priv, digest[:]))
}

// VerifyProof checks a wallet connect proof: timestamp window, domain
// allowlist, the ed25519 signature over ProofDigest, and that addrHash is
// the sha256 of the submitted key. Without the last check a valid signature
// from any key would prove ownership of any address.
func VerifyProof(pubKeyHex string, addrHash []byte, workchain int32, proof Proof, allowedDomains []string) error {
	proofTime := time.Unix(proof.Timestamp, 0)
	if time.Since(proofTime) > MaxProofAge {
		return fmt.Errorf("proof expired: %s old", time.Since(proofTime).Round(time.Second))
	}
	if proofTime.After(time.Now().Add(1 * time.Minute)) {
		return fmt.Errorf("proof timestamp is in the future")
	}

	if !isDomainAllowed(proof.Domain.Value, allowedDomains) {
		return fmt.Errorf("domain %q not in allowed list", proof.Domain.Value)
	}

	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size: %d", len(pubKey))
	}

	keyHash := sha256.Sum256(pubKey)
	if !bytes.Equal(keyHash[:], addrHash) {
		return fmt.Errorf("public key does not match address")
	}

	sig, err := hex.DecodeString(proof.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	digest := ProofDigest(workchain, addrHash, proof)
	if !ed25519.Verify(pubKey, digest[:], sig) {
		return fmt.Errorf("invalid signature")
	}

	return nil
}

// ParseRawAddress splits "0:abcdef..." into workchain and 32-byte hash.
func ParseRawAddress(raw string) (workchain int32, addrHash []byte, err error) {
	var wc int
	var hashHex string
	n, _ := fmt.Sscanf(raw, "%d:%s", &wc, &hashHex)
	if n != 2 {
		return 0, nil, fmt.Errorf("invalid raw address format: %s", raw)
	}
	workchain = int32(wc)
	addrHash, err = hex.DecodeString(hashHex)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid address hash hex: %w", err)
	}
	if len(addrHash) != 32 {
		return 0, nil, fmt.Errorf("address hash must be 32 bytes, got %d", len(addrHash))
	}
	return workchain, addrHash, nil
}

func isDomainAllowed(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true // empty allowlist accepts everything (dev mode)
	}
	for _, d := range allowed {
		if d == domain {
			return true
		}
	}
	return false
}
