package saltedge

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

var (
	ErrMissingSignature = errors.New("saltedge: callback signature missing")
	ErrInvalidSignature = errors.New("saltedge: callback signature invalid")
)

// CallbackVerifier checks the Signature header Salt Edge puts on callbacks:
// base64 RSA-SHA256 over "{callback_url}|{raw body}". A nil verifier accepts
// everything, which is what an unconfigured public key means.
type CallbackVerifier struct {
	key         *rsa.PublicKey
	callbackURL string
}

// NewCallbackVerifier returns nil when no key is configured.
func NewCallbackVerifier(publicKeyPEM, callbackURL string) (*CallbackVerifier, error) {
	if publicKeyPEM == "" {
		return nil, nil
	}

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("NewCallbackVerifier: no PEM block found")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("NewCallbackVerifier: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("NewCallbackVerifier: unexpected key type %T", parsed)
	}

	return &CallbackVerifier{key: key, callbackURL: callbackURL}, nil
}

func (v *CallbackVerifier) Verify(signature string, body []byte) error {
	if v == nil {
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	digest := sha256.Sum256([]byte(v.callbackURL + "|" + string(body)))
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
