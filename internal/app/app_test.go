package app

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/pkg/config"
)

func writeTestKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kalshi.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:             "info",
		HTTPPort:             "0",
		KalshiWSURL:          "wss://example.com/trade-api/ws/v2",
		KalshiRESTURL:        "https://example.com/trade-api/v2",
		KalshiAccessKeyID:    "test-access-key",
		KalshiPrivateKeyPath: writeTestKey(t),
		PolymarketWSURL:      "wss://example.com/ws/market",
		WSPingInterval:       10 * time.Second,
		WSReconnectInterval:  time.Second,
		WSMaxRetries:         1,
		IngestQueueCapacity:  100,
		MinSpreadThreshold:   0.02,
		MinTradeSize:         10,
		PublishInterval:      time.Second,
		CoordPrepareTimeout:  5 * time.Second,
		ClientSendTimeout:    time.Second,
		StorageMode:          "console",
	}
}

func TestNewBuildsPipeline(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop(), nil)
	require.NoError(t, err)

	assert.NotNil(t, a.kalshiClient)
	assert.NotNil(t, a.polyClient)
	assert.NotNil(t, a.manager)
	assert.NotNil(t, a.broadcaster)
	assert.NotNil(t, a.httpServer)

	a.cancel()
}

func TestNewRequiresKalshiCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.KalshiAccessKeyID = ""

	_, err := New(cfg, zap.NewNop(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KALSHI_ACCESS_KEY_ID")
}

func TestNewRejectsUnreadableKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.KalshiPrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")

	_, err := New(cfg, zap.NewNop(), nil)
	require.Error(t, err)
}
