package saltedge

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCallbackURL = "https://scanpay.example.com/api/saltedge/callbacks"

func generateKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signCallback(t *testing.T, key *rsa.PrivateKey, callbackURL, body string) string {
	t.Helper()

	digest := sha256.Sum256([]byte(callbackURL + "|" + body))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func TestNewCallbackVerifier_NoKey(t *testing.T) {
	v, err := NewCallbackVerifier("", testCallbackURL)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, v.Verify("", []byte(`{}`)))
}

func TestNewCallbackVerifier_BadPEM(t *testing.T) {
	_, err := NewCallbackVerifier("not a key", testCallbackURL)
	assert.Error(t, err)
}

func TestCallbackVerifier_Verify(t *testing.T) {
	key, pemKey := generateKey(t)
	other, _ := generateKey(t)

	v, err := NewCallbackVerifier(pemKey, testCallbackURL)
	require.NoError(t, err)

	body := `{"data":{"connection_id":"111","customer_id":"222","stage":"finish"}}`

	tests := []struct {
		name      string
		signature string
		body      string
		wantErr   error
	}{
		{
			name:      "valid signature",
			signature: signCallback(t, key, testCallbackURL, body),
			body:      body,
		},
		{
			name:    "missing signature",
			body:    body,
			wantErr: ErrMissingSignature,
		},
		{
			name:      "not base64",
			signature: "%%%",
			body:      body,
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "tampered body",
			signature: signCallback(t, key, testCallbackURL, body),
			body:      body + " ",
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "signed for another url",
			signature: signCallback(t, key, "https://other.example.com/cb", body),
			body:      body,
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "signed by another key",
			signature: signCallback(t, other, testCallbackURL, body),
			body:      body,
			wantErr:   ErrInvalidSignature,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.signature, []byte(tc.body))
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
