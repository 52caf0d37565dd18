package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// LoadPrivateKey reads an RSA private key from a PEM file (PKCS#1 or PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key in %s is %T, want *rsa.PrivateKey", path, parsed)
	}

	return key, nil
}

// SignRequest produces the base64 RSA-PSS(SHA-256) signature over
// timestamp + method + path that Kalshi expects.
func SignRequest(key *rsa.PrivateKey, timestampMs int64, method, path string) (string, error) {
	payload := strconv.FormatInt(timestampMs, 10) + method + path

	digest := sha256.Sum256([]byte(payload))

	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("sign pss: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// AuthHeaders builds the headers for the authenticated WebSocket upgrade.
// Signing failures are authentication errors: fatal for the client, never
// retried.
func AuthHeaders(keyID string, key *rsa.PrivateKey, method, path string) (http.Header, error) {
	ts := time.Now().UnixMilli()

	sig, err := SignRequest(key, ts, method, path)
	if err != nil {
		return nil, &types.AuthError{Venue: "kalshi", Message: err.Error()}
	}

	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", keyID)
	h.Set("KALSHI-ACCESS-TIMESTAMP", strconv.FormatInt(ts, 10))
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)

	return h, nil
}
