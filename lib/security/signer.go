package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// WebhookSigner signs webhook payloads with the gateway's private key.
// Merchants verify deliveries against the public key served at
// /.well-known/webhook-public-key.pem.
type WebhookSigner struct {
	privateKey *rsa.PrivateKey
	publicPEM  []byte
}

// NewWebhookSigner parses a base64-encoded PEM private key, the form the
// WEBHOOK_SIGNING_KEY environment variable carries.
func NewWebhookSigner(encodedKey string) (*WebhookSigner, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("webhook signing key is not valid base64: %v", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("webhook signing key is not PEM encoded")
	}

	var privateKey *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		privateKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
	default:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported webhook signing key type %T", parsed)
		}
		privateKey = rsaKey
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	return &WebhookSigner{privateKey: privateKey, publicPEM: publicPEM}, nil
}

// Sign returns the base64 RSA-SHA256 signature over the exact payload bytes.
func (s *WebhookSigner) Sign(payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

// PublicKeyPEM returns the verification key in SPKI PEM form.
func (s *WebhookSigner) PublicKeyPEM() []byte {
	return s.publicPEM
}

// Verify checks a base64 signature against the signer's public key. Used by
// tests and by merchants integrating against the gateway.
func Verify(publicPEM []byte, payload []byte, signature string) error {
	block, _ := pem.Decode(publicPEM)
	if block == nil {
		return errors.New("public key is not PEM encoded")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return err
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("unsupported public key type %T", parsed)
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, digest[:], sig)
}

// GenerateSigningKey creates a new 2048-bit RSA key and returns it in the
// base64 PEM form expected by WEBHOOK_SIGNING_KEY.
func GenerateSigningKey() (string, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return base64.StdEncoding.EncodeToString(pemBytes), nil
}
