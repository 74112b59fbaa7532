package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	encodedKey, err := GenerateSigningKey()
	require.NoError(t, err)

	signer, err := NewWebhookSigner(encodedKey)
	require.NoError(t, err)

	payload := []byte(`{"invoice_id":"abc","paid":true}`)
	signature, err := signer.Sign(payload)
	require.NoError(t, err)

	assert.NoError(t, Verify(signer.PublicKeyPEM(), payload, signature))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	encodedKey, err := GenerateSigningKey()
	require.NoError(t, err)
	signer, err := NewWebhookSigner(encodedKey)
	require.NoError(t, err)

	signature, err := signer.Sign([]byte(`{"invoice_id":"abc","paid":true}`))
	require.NoError(t, err)

	err = Verify(signer.PublicKeyPEM(), []byte(`{"invoice_id":"abc","paid":false}`), signature)
	assert.Error(t, err)
}

func TestNewWebhookSignerRejectsGarbage(t *testing.T) {
	_, err := NewWebhookSigner("not base64!!")
	assert.Error(t, err)

	_, err = NewWebhookSigner("bm90IGEgcGVtIGtleQ==")
	assert.Error(t, err)
}
