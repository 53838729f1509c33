package tra

import (
	"encoding/base64"
	"fmt"

	"go.mozilla.org/pkcs7"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/cert"
)

// Sign wraps the document in a CMS SignedData envelope (DER). The document
// bytes are embedded untouched and the signer certificate rides along, the
// WSAA verifier needs both inside the envelope.
func Sign(document []byte, certPath, keyPath, passphrase string) ([]byte, error) {
	crt, err := cert.LoadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	signer, err := cert.LoadSigner(keyPath, passphrase)
	if err != nil {
		return nil, err
	}

	sd, err := pkcs7.NewSignedData(document)
	if err != nil {
		return nil, fmt.Errorf("prepare CMS envelope: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := sd.AddSigner(crt, signer, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, &afip.CertificateError{Reason: afip.CertCorrupt, Path: keyPath,
			Err: fmt.Errorf("sign CMS envelope: %w", err)}
	}

	return sd.Finish()
}

// SignBase64 returns the envelope in the transport encoding WSAA expects.
func SignBase64(document []byte, certPath, keyPath, passphrase string) (string, error) {
	der, err := Sign(document, certPath, keyPath, passphrase)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
