package saltedge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// signatureTTL is the validity window stamped into Expires-at. The aggregator
// enforces it; the signer does not.
const signatureTTL = 60 * time.Second

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns base64(HMAC-SHA256("expiresAt|METHOD|url|body")).
func (s *Signer) Sign(method, url string, expiresAt int64, body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonicalString(method, url, expiresAt, body)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func canonicalString(method, url string, expiresAt int64, body []byte) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(expiresAt, 10))
	b.WriteByte('|')
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('|')
	b.WriteString(url)
	b.WriteByte('|')
	b.Write(body)
	return b.String()
}

func expiresAt(now time.Time) int64 {
	return now.Add(signatureTTL).Unix()
}
