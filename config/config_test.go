package config

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freekieb7/webserver/test"
)

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, err := Parse([]string{"--sslPort=8443", "--serverPort=8080"}, &out)
	test.AssertNoError(t, err)

	test.AssertEqual(t, 8080, cfg.ServerPort)
	test.AssertEqual(t, 8443, cfg.SSLPort)
	test.AssertEqual(t, 0, cfg.QUICPort)
	test.AssertEqual(t, "./www", cfg.Root)
	test.AssertEqual(t, "./www/redirect.defs", cfg.Redirects)
	test.AssertEqual(t, 1024, cfg.MaxSessions)
	test.AssertEqual(t, false, cfg.CatalogPerSession)
	test.AssertEqual(t, time.Duration(0), cfg.CatalogRefresh)
	test.AssertEqual(t, slog.LevelInfo, cfg.LogLevel)
	test.AssertEqual(t, ":8080", cfg.ServerAddr())
	test.AssertEqual(t, ":8443", cfg.SSLAddr())
	test.AssertEqual(t, "", out.String())
}

func TestParseOptions(t *testing.T) {
	cfg, err := Parse([]string{
		"--serverPort=80",
		"--sslPort=443",
		"--quicPort=4433",
		"--root=/srv/www",
		"--redirects=/srv/redirects",
		"--maxSessions=16",
		"--catalogRefresh=30s",
		"--name=edge",
		"--logLevel=debug",
	}, &bytes.Buffer{})
	test.AssertNoError(t, err)

	test.AssertEqual(t, ":4433", cfg.QUICAddr())
	test.AssertEqual(t, "/srv/www", cfg.Root)
	test.AssertEqual(t, "/srv/redirects", cfg.Redirects)
	test.AssertEqual(t, 16, cfg.MaxSessions)
	test.AssertEqual(t, 30*time.Second, cfg.CatalogRefresh)
	test.AssertEqual(t, "edge", cfg.Name)
	test.AssertEqual(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseUsage(t *testing.T) {
	tests := map[string][]string{
		"no arguments":   nil,
		"missing ssl":    {"--serverPort=8080"},
		"missing server": {"--sslPort=8443"},
		"not a number":   {"--serverPort=http", "--sslPort=8443"},
		"negative port":  {"--serverPort=-1", "--sslPort=8443"},
		"port too large": {"--serverPort=8080", "--sslPort=65536"},
		"hex port":       {"--serverPort=0x50", "--sslPort=8443"},
		"octal port":     {"--serverPort=0o17", "--sslPort=8443"},
		"signed port":    {"--serverPort=+80", "--sslPort=8443"},
		"empty port":     {"--serverPort=", "--sslPort=8443"},
		"hex quic port":  {"--serverPort=8080", "--sslPort=8443", "--quicPort=0x1"},
		"unknown flag":   {"--serverPort=8080", "--sslPort=8443", "--verbose"},
		"bad log level":  {"--serverPort=8080", "--sslPort=8443", "--logLevel=loud"},
		"no sessions":    {"--serverPort=8080", "--sslPort=8443", "--maxSessions=0"},
		"both catalogs":  {"--serverPort=8080", "--sslPort=8443", "--catalogPerSession", "--catalogRefresh=1s"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := Parse(args, &out)
			test.AssertErrorIs(t, err, ErrUsage)
			test.AssertContains(t, out.String(), "Usage: webserver")
		})
	}
}

func TestParseZeroPort(t *testing.T) {
	cfg, err := Parse([]string{"--serverPort=0", "--sslPort=0"}, &bytes.Buffer{})
	test.AssertNoError(t, err)
	test.AssertEqual(t, 0, cfg.ServerPort)
	test.AssertEqual(t, 0, cfg.SSLPort)

	// leading zeros are still decimal
	cfg, err = Parse([]string{"--serverPort=080", "--sslPort=0443"}, &bytes.Buffer{})
	test.AssertNoError(t, err)
	test.AssertEqual(t, 80, cfg.ServerPort)
	test.AssertEqual(t, 443, cfg.SSLPort)
}

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	test.AssertNoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	test.AssertNoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	test.AssertNoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")
	test.AssertNoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	test.AssertNoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestTLSConfig(t *testing.T) {
	certFile, keyFile := writeKeyPair(t)

	cfg := Config{CertFile: certFile, KeyFile: keyFile}
	tlsConfig, err := cfg.TLSConfig()
	test.AssertNoError(t, err)
	test.AssertEqual(t, 1, len(tlsConfig.Certificates))

	cfg.KeyFile = filepath.Join(t.TempDir(), "missing.key")
	_, err = cfg.TLSConfig()
	test.AssertTrue(t, err != nil, "expected an error for a missing key")
}
