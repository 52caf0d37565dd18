package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestSignRequestVerifies(t *testing.T) {
	key := testKey(t)

	const ts = int64(1700000000000)
	sig, err := SignRequest(key, ts, http.MethodGet, "/trade-api/ws/v2")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte(strconv.FormatInt(ts, 10) + "GET" + "/trade-api/ws/v2"))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], raw, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	assert.NoError(t, err)
}

func TestAuthHeaders(t *testing.T) {
	key := testKey(t)

	headers, err := AuthHeaders("key-id-123", key, http.MethodGet, "/trade-api/ws/v2")
	require.NoError(t, err)

	assert.Equal(t, "key-id-123", headers.Get("KALSHI-ACCESS-KEY"))
	assert.NotEmpty(t, headers.Get("KALSHI-ACCESS-SIGNATURE"))

	ts, err := strconv.ParseInt(headers.Get("KALSHI-ACCESS-TIMESTAMP"), 10, 64)
	require.NoError(t, err)
	assert.Greater(t, ts, int64(0))
}

func TestLoadPrivateKeyPKCS1(t *testing.T) {
	key := testKey(t)

	path := filepath.Join(t.TempDir(), "key.pem")
	block := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(path, block, 0o600))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestLoadPrivateKeyPKCS8(t *testing.T) {
	key := testKey(t)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	require.NoError(t, os.WriteFile(path, block, 0o600))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestLoadPrivateKeyErrors(t *testing.T) {
	_, err := LoadPrivateKey(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))
	_, err = LoadPrivateKey(path)
	assert.Error(t, err)
}
