// Package cert resolves and validates the signing certificate and private
// key pair for a CUIT. Key material is loaded per operation and never kept
// decrypted between calls.
package cert

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/youmark/pkcs8"

	"github.com/resguar/go-afip-client/afip"
)

var logger = logrus.WithField("component", "afip.cert")

type Store struct {
	basePath   string
	certPath   string
	keyPath    string
	passphrase string
}

func NewStore(cfg afip.Config) *Store {
	return &Store{
		basePath:   cfg.CertBasePath,
		certPath:   cfg.CertPath,
		keyPath:    cfg.KeyPath,
		passphrase: cfg.Passphrase,
	}
}

// Resolve returns the certificate pair for the given CUIT. A directory
// {base}/{cuit}/ with certificate.crt + private.key takes precedence over
// the fixed single-tenant pair.
func (s *Store) Resolve(cuit afip.Cuit) (certPath, keyPath, passphrase string, err error) {
	if s.basePath != "" {
		dir := filepath.Join(s.basePath, string(cuit))
		cp := filepath.Join(dir, "certificate.crt")
		kp := filepath.Join(dir, "private.key")
		if fileExists(cp) && fileExists(kp) {
			logger.Debugf("using per-CUIT certificates from %s", dir)
			return cp, kp, s.passphrase, nil
		}
	}

	if s.certPath == "" || s.keyPath == "" {
		return "", "", "", &afip.CertificateError{
			Reason: afip.CertNotFound,
			Path:   filepath.Join(s.basePath, string(cuit)),
			Err:    errors.New("no per-CUIT directory and no fixed certificate pair configured"),
		}
	}
	return s.certPath, s.keyPath, s.passphrase, nil
}

// Validate loads both files and checks: the certificate parses, its validity
// window contains now, and its public key matches the private key. It never
// passes silently, every failure carries a reason.
func (s *Store) Validate(certPath, keyPath, passphrase string) error {
	crt, err := LoadCertificate(certPath)
	if err != nil {
		return err
	}

	now := time.Now()
	if now.Before(crt.NotBefore) {
		return &afip.CertificateError{Reason: afip.CertNotYetValid, Path: certPath,
			Err: fmt.Errorf("valid from %s", crt.NotBefore.Format(time.RFC3339))}
	}
	if now.After(crt.NotAfter) {
		return &afip.CertificateError{Reason: afip.CertExpired, Path: certPath,
			Err: fmt.Errorf("expired %s", crt.NotAfter.Format(time.RFC3339))}
	}

	signer, err := LoadSigner(keyPath, passphrase)
	if err != nil {
		return err
	}

	if !publicKeysMatch(crt.PublicKey, signer.Public()) {
		return &afip.CertificateError{Reason: afip.CertKeyMismatch, Path: certPath,
			Err: fmt.Errorf("private key %s does not match certificate", keyPath)}
	}
	return nil
}

// SubjectCN extracts the certificate subject CN, used as the CN of the
// loginTicketRequest source DN.
func (s *Store) SubjectCN(certPath string) (string, error) {
	crt, err := LoadCertificate(certPath)
	if err != nil {
		return "", err
	}
	return crt.Subject.CommonName, nil
}

// LoadCertificate reads the first CERTIFICATE block from a PEM file.
func LoadCertificate(path string) (*x509.Certificate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &afip.CertificateError{Reason: afip.CertNotFound, Path: path, Err: err}
	}

	for len(b) > 0 {
		var block *pem.Block
		block, b = pem.Decode(b)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		crt, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path, Err: err}
		}
		return crt, nil
	}
	return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path,
		Err: errors.New("no CERTIFICATE block found in PEM")}
}

// LoadSigner reads the first private key block, decrypting PKCS#8 when a
// passphrase is required.
func LoadSigner(path, passphrase string) (crypto.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &afip.CertificateError{Reason: afip.CertNotFound, Path: path, Err: err}
	}

	for len(b) > 0 {
		var block *pem.Block
		block, b = pem.Decode(b)
		if block == nil {
			break
		}

		var keyAny any
		var perr error

		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			if passphrase == "" {
				return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path,
					Err: errors.New("passphrase is required for ENCRYPTED PRIVATE KEY")}
			}
			keyAny, perr = pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
		case "PRIVATE KEY":
			keyAny, perr = x509.ParsePKCS8PrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			keyAny, perr = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			keyAny, perr = x509.ParseECPrivateKey(block.Bytes)
		default:
			continue
		}

		if perr != nil {
			return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path, Err: perr}
		}

		switch k := keyAny.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path,
				Err: fmt.Errorf("unsupported key type %T (expected RSA or ECDSA)", keyAny)}
		}
	}
	return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: path,
		Err: errors.New("no private key block found in PEM")}
}

func publicKeysMatch(certKey, signerKey any) bool {
	switch ck := certKey.(type) {
	case *rsa.PublicKey:
		sk, ok := signerKey.(*rsa.PublicKey)
		return ok && ck.E == sk.E && ck.N.Cmp(sk.N) == 0
	case *ecdsa.PublicKey:
		sk, ok := signerKey.(*ecdsa.PublicKey)
		return ok && ck.Curve == sk.Curve && ck.X.Cmp(sk.X) == 0 && ck.Y.Cmp(sk.Y) == 0
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
