// Package ethsig implements Ethereum personal_sign signing and signer recovery.
package ethsig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	signatureLength = 65
	messagePrefix   = "\x19Ethereum Signed Message:\n"
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrInvalidPrivateKey  = errors.New("invalid private key")
)

// Verifier checks personal_sign signatures. It is stateless.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether signature over message was produced by address.
// Malformed input is reported as false.
func (Verifier) Verify(message, signature, address string) bool {
	signer, err := RecoverSigner(message, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(signer, strings.TrimSpace(address))
}

// TextHash returns keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func TextHash(message string) []byte {
	return keccak256([]byte(messagePrefix + strconv.Itoa(len(message)) + message))
}

// RecoverSigner returns the lower-case 0x address that signed message.
// The signature is hex encoded r || s || v with v in {0, 1, 27, 28}.
func RecoverSigner(message, signature string) (string, error) {
	sig, err := decodeHex(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != signatureLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, signatureLength, len(sig))
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("%w: invalid recovery id %d", ErrMalformedSignature, sig[64])
	}

	// decred compact form: recovery byte first, then r and s.
	compact := make([]byte, signatureLength)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, TextHash(message))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	return pubKeyToAddress(pub), nil
}

// Sign produces a hex personal_sign signature (r || s || v, v in {27, 28}).
func Sign(privateKeyHex, message string) (string, error) {
	key, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}

	compact := ecdsa.SignCompact(key, TextHash(message), false)

	sig := make([]byte, signatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]

	return "0x" + hex.EncodeToString(sig), nil
}

// AddressFromPrivateKey derives the lower-case 0x address of a hex private key.
func AddressFromPrivateKey(privateKeyHex string) (string, error) {
	key, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	return pubKeyToAddress(key.PubKey()), nil
}

// GenerateKey returns a new random hex private key and its address.
func GenerateKey() (privateKeyHex, address string, err error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", err
	}
	return "0x" + hex.EncodeToString(key.Serialize()), pubKeyToAddress(key.PubKey()), nil
}

func parsePrivateKey(privateKeyHex string) (*secp256k1.PrivateKey, error) {
	raw, err := decodeHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidPrivateKey, len(raw))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidPrivateKey)
	}

	return secp256k1.NewPrivateKey(&scalar), nil
}

func pubKeyToAddress(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()
	hash := keccak256(uncompressed[1:])
	return "0x" + hex.EncodeToString(hash[12:])
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
