package afip

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoCuit        = errors.New("no CUIT configured or provided")
	ErrEmptyResponse = errors.New("empty response from AFIP")
)

type CertReason int

const (
	CertNotFound CertReason = iota
	CertExpired
	CertNotYetValid
	CertCorrupt
	CertKeyMismatch
)

func (r CertReason) String() string {
	switch r {
	case CertNotFound:
		return "not found"
	case CertExpired:
		return "expired"
	case CertNotYetValid:
		return "not yet valid"
	case CertCorrupt:
		return "corrupt"
	case CertKeyMismatch:
		return "key mismatch"
	}
	return "unknown"
}

// CertificateError is fatal, never retried.
type CertificateError struct {
	Reason CertReason
	Path   string
	Err    error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificate %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("certificate %s: %s", e.Path, e.Reason)
}

func (e *CertificateError) Unwrap() error { return e.Err }

// TransportError is what ResilientTransport surfaces after it is done
// retrying (or immediately, for non-transient causes and SOAP faults).
type TransportError struct {
	Op          string
	StatusCode  int
	FaultCode   string
	FaultString string
	Attempts    int
	Err         error
}

func (e *TransportError) Error() string {
	if e.FaultCode != "" || e.FaultString != "" {
		return fmt.Sprintf("%s: soap fault %s: %s", e.Op, e.FaultCode, e.FaultString)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http status %d after %d attempt(s): %v", e.Op, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %v (after %d attempt(s))", e.Op, e.Err, e.Attempts)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthenticationError wraps every failure of the WSAA exchange: signing,
// transport, malformed or credential-less responses.
type AuthenticationError struct {
	Message     string
	FaultCode   string
	FaultString string
	Err         error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed: " + e.Message
	if e.FaultCode != "" {
		msg += fmt.Sprintf(" [fault %s: %s]", e.FaultCode, e.FaultString)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ValidationError reports an invoice rejected locally before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid invoice: " + e.Message
}

// Observation is one structured code/message entry from a WSFE response,
// either a rejection cause or an informational remark.
type Observation struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (o Observation) String() string {
	return fmt.Sprintf("%d: %s", o.Code, o.Message)
}

// AuthorizationError means WSFE refused the invoice. Never retried: the
// number was already consumed by the attempt, resubmitting it as-is would
// break correlativity.
type AuthorizationError struct {
	Code         int
	Message      string
	Observations []Observation
}

func (e *AuthorizationError) Error() string {
	if len(e.Observations) == 0 {
		return fmt.Sprintf("invoice rejected: %d: %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Observations))
	for i, o := range e.Observations {
		parts[i] = o.String()
	}
	return "invoice rejected: " + strings.Join(parts, "; ")
}
