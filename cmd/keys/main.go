package main

import (
	"fmt"
	"log"

	"github.com/sparkgate/sparkgate/lib/security"
)

// Generates a fresh webhook signing key pair. The private key is printed in
// the base64 PEM form WEBHOOK_SIGNING_KEY expects, the public key as plain
// PEM for merchant distribution.
func main() {
	encodedKey, err := security.GenerateSigningKey()
	if err != nil {
		log.Fatalf("Error generating signing key: %v", err)
	}
	signer, err := security.NewWebhookSigner(encodedKey)
	if err != nil {
		log.Fatalf("Error loading generated key: %v", err)
	}

	fmt.Printf("WEBHOOK_SIGNING_KEY=%s\n\n", encodedKey)
	fmt.Printf("%s", signer.PublicKeyPEM())
}
