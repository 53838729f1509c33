package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resguar/go-afip-client/afip"
)

func generatePair(t *testing.T, cn string, notBefore, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func writePair(t *testing.T, dir string, certPEM, keyPEM []byte) (certPath, keyPath string) {
	t.Helper()
	certPath = filepath.Join(dir, "certificate.crt")
	keyPath = filepath.Join(dir, "private.key")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0600))
	return certPath, keyPath
}

func TestStore_Resolve_PerCuitPrecedence(t *testing.T) {
	base := t.TempDir()
	now := time.Now()

	cuitDir := filepath.Join(base, "20123456786")
	require.NoError(t, os.MkdirAll(cuitDir, 0700))
	certPEM, keyPEM := generatePair(t, "tenant", now.Add(-time.Hour), now.Add(time.Hour))
	writePair(t, cuitDir, certPEM, keyPEM)

	store := NewStore(afip.Config{
		CertBasePath: base,
		CertPath:     "/fixed/certificate.crt",
		KeyPath:      "/fixed/private.key",
	})

	certPath, keyPath, _, err := store.Resolve("20123456786")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cuitDir, "certificate.crt"), certPath)
	assert.Equal(t, filepath.Join(cuitDir, "private.key"), keyPath)

	// a CUIT without its own directory falls back to the fixed pair
	certPath, keyPath, _, err = store.Resolve("20111111112")
	require.NoError(t, err)
	assert.Equal(t, "/fixed/certificate.crt", certPath)
	assert.Equal(t, "/fixed/private.key", keyPath)
}

func TestStore_Resolve_NothingConfigured(t *testing.T) {
	store := NewStore(afip.Config{CertBasePath: t.TempDir()})

	_, _, _, err := store.Resolve("20123456786")
	require.Error(t, err)

	certErr, ok := err.(*afip.CertificateError)
	require.True(t, ok)
	assert.Equal(t, afip.CertNotFound, certErr.Reason)
}

func TestStore_Validate_OK(t *testing.T) {
	now := time.Now()
	certPEM, keyPEM := generatePair(t, "ok", now.Add(-time.Hour), now.Add(time.Hour))
	certPath, keyPath := writePair(t, t.TempDir(), certPEM, keyPEM)

	store := NewStore(afip.Config{})
	assert.NoError(t, store.Validate(certPath, keyPath, ""))
}

func TestStore_Validate_Expired(t *testing.T) {
	now := time.Now()
	certPEM, keyPEM := generatePair(t, "old", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	certPath, keyPath := writePair(t, t.TempDir(), certPEM, keyPEM)

	err := NewStore(afip.Config{}).Validate(certPath, keyPath, "")
	require.Error(t, err)
	assert.Equal(t, afip.CertExpired, err.(*afip.CertificateError).Reason)
}

func TestStore_Validate_NotYetValid(t *testing.T) {
	now := time.Now()
	certPEM, keyPEM := generatePair(t, "future", now.Add(24*time.Hour), now.Add(48*time.Hour))
	certPath, keyPath := writePair(t, t.TempDir(), certPEM, keyPEM)

	err := NewStore(afip.Config{}).Validate(certPath, keyPath, "")
	require.Error(t, err)
	assert.Equal(t, afip.CertNotYetValid, err.(*afip.CertificateError).Reason)
}

func TestStore_Validate_KeyMismatch(t *testing.T) {
	now := time.Now()
	certPEM, _ := generatePair(t, "a", now.Add(-time.Hour), now.Add(time.Hour))
	_, otherKeyPEM := generatePair(t, "b", now.Add(-time.Hour), now.Add(time.Hour))
	certPath, keyPath := writePair(t, t.TempDir(), certPEM, otherKeyPEM)

	err := NewStore(afip.Config{}).Validate(certPath, keyPath, "")
	require.Error(t, err)
	assert.Equal(t, afip.CertKeyMismatch, err.(*afip.CertificateError).Reason)
}

func TestStore_Validate_CorruptCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "certificate.crt")
	require.NoError(t, os.WriteFile(certPath, []byte("garbage"), 0600))

	err := NewStore(afip.Config{}).Validate(certPath, certPath, "")
	require.Error(t, err)
	assert.Equal(t, afip.CertCorrupt, err.(*afip.CertificateError).Reason)
}

func TestStore_SubjectCN(t *testing.T) {
	now := time.Now()
	certPEM, keyPEM := generatePair(t, "empresa-sa", now.Add(-time.Hour), now.Add(time.Hour))
	certPath, _ := writePair(t, t.TempDir(), certPEM, keyPEM)

	cn, err := NewStore(afip.Config{}).SubjectCN(certPath)
	require.NoError(t, err)
	assert.Equal(t, "empresa-sa", cn)
}

func TestLoadSigner_ECKey(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "ec.key")
	require.NoError(t, os.WriteFile(keyPath,
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0600))

	signer, err := LoadSigner(keyPath, "")
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, signer)
}

func TestLoadSigner_EncryptedWithoutPassphrase(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "enc.key")
	require.NoError(t, os.WriteFile(keyPath,
		pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: []byte{0x30, 0x00}}), 0600))

	_, err := LoadSigner(keyPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passphrase")
}
