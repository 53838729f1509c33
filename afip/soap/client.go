// Package soap is the resilient transport shared by the WSAA and WSFE
// clients: SOAP 1.2 over HTTP with bounded retries and exponential backoff.
package soap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/util"
)

const envelopeNS = "http://www.w3.org/2003/05/soap-envelope"

const maxBackoff = 10 * time.Second

// The AFIP hosts still offer DH key exchanges small enough for modern TLS
// stacks to abort the handshake. Pin an explicit suite list instead.
var pinnedCipherSuites = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
}

type Client struct {
	rest        *resty.Client
	maxAttempts int
	backoff     time.Duration
}

func New(cfg afip.Config) *Client {
	cfg = cfg.Normalized()

	rest := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "go-afip-client").
		SetTLSClientConfig(&tls.Config{
			MinVersion:   tls.VersionTLS12,
			CipherSuites: pinnedCipherSuites,
		})

	return &Client{
		rest:        rest,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Call posts the method element to the endpoint and returns the first
// element inside the response Body. SOAP faults and HTTP errors come back
// as *afip.TransportError; transient network failures are retried up to the
// attempt budget.
func (c *Client) Call(ctx context.Context, url, action string, method []byte) (*etree.Element, error) {
	payload, err := envelope(method)
	if err != nil {
		return nil, fmt.Errorf("%s: build envelope: %w", action, err)
	}

	contentType := fmt.Sprintf(`application/soap+xml; charset=utf-8; action="%s"`, action)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(c.backoff, attempt-1)
			log.Debugf("%s: retrying in %s (attempt %d/%d)", action, delay, attempt, c.maxAttempts)
			select {
			case <-ctx.Done():
				return nil, &afip.TransportError{Op: action, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		r := c.rest.R().SetContext(ctx)
		if util.HttpTraceEnabled() {
			r.EnableTrace()
		}

		resp, err := r.
			SetHeader("Content-Type", contentType).
			SetBody(payload).
			Post(url)

		if err != nil {
			lastErr = err
			if Retryable(err.Error()) {
				log.Warnf("%s: transient failure: %v", action, err)
				continue
			}
			return nil, &afip.TransportError{Op: action, Attempts: attempt, Err: err}
		}

		printTraceInfo(action, url, resp)

		body, parseErr := parseBody(resp.Body())
		if parseErr != nil {
			if resp.IsError() {
				return nil, &afip.TransportError{Op: action, StatusCode: resp.StatusCode(),
					Attempts: attempt, Err: fmt.Errorf("http error: %s", resp.Status())}
			}
			return nil, &afip.TransportError{Op: action, Attempts: attempt, Err: parseErr}
		}

		// faults are final, retrying a fault resubmits the same request
		if fault := findFault(body); fault != nil {
			return nil, &afip.TransportError{
				Op:          action,
				StatusCode:  resp.StatusCode(),
				FaultCode:   fault.code,
				FaultString: fault.reason,
				Attempts:    attempt,
			}
		}
		if resp.IsError() {
			return nil, &afip.TransportError{Op: action, StatusCode: resp.StatusCode(),
				Attempts: attempt, Err: fmt.Errorf("http error: %s", resp.Status())}
		}

		return body, nil
	}

	return nil, &afip.TransportError{Op: action, Attempts: c.maxAttempts, Err: lastErr}
}

// Retryable reports whether the failure text matches a known transient
// cause. Everything else propagates immediately.
func Retryable(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range []string{
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"could not connect",
		"network is unreachable",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// backoffDelay doubles per retry: base, 2*base, 4*base... capped at 10s.
func backoffDelay(base time.Duration, retry int) time.Duration {
	d := base << (retry - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func envelope(method []byte) ([]byte, error) {
	inner := etree.NewDocument()
	if err := inner.ReadFromBytes(method); err != nil {
		return nil, err
	}
	root := inner.Root()
	if root == nil {
		return nil, fmt.Errorf("method element is empty")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", envelopeNS)
	env.CreateElement("soapenv:Header")
	env.CreateElement("soapenv:Body").AddChild(root.Copy())

	return doc.WriteToBytes()
}

// parseBody returns the first element inside the response Body.
func parseBody(raw []byte) (*etree.Element, error) {
	if len(raw) == 0 {
		return nil, afip.ErrEmptyResponse
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse response XML: %w", err)
	}

	body := FindLocal(doc.Root(), "Body")
	if body == nil {
		return nil, fmt.Errorf("response has no SOAP Body")
	}
	for _, ch := range body.ChildElements() {
		return ch, nil
	}
	return nil, afip.ErrEmptyResponse
}

type soapFault struct {
	code   string
	reason string
}

// findFault handles both SOAP 1.2 (Code/Value, Reason/Text) and legacy 1.1
// (faultcode, faultstring) fault shapes, WSAA still emits the latter.
func findFault(el *etree.Element) *soapFault {
	f := el
	if localName(f.Tag) != "Fault" {
		f = FindLocal(el, "Fault")
	}
	if f == nil {
		return nil
	}

	fault := &soapFault{}
	if code := FindLocal(f, "faultcode"); code != nil {
		fault.code = strings.TrimSpace(code.Text())
	} else if code := FindLocal(f, "Value"); code != nil {
		fault.code = strings.TrimSpace(code.Text())
	}
	if reason := FindLocal(f, "faultstring"); reason != nil {
		fault.reason = strings.TrimSpace(reason.Text())
	} else if reason := FindLocal(f, "Text"); reason != nil {
		fault.reason = strings.TrimSpace(reason.Text())
	}
	return fault
}

// FindLocal searches the subtree for the first element with the given local
// name, ignoring namespace prefixes.
func FindLocal(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, ch := range el.ChildElements() {
		if localName(ch.Tag) == name {
			return ch
		}
		if found := FindLocal(ch, name); found != nil {
			return found
		}
	}
	return nil
}

// FindLocalAll collects every descendant whose local name matches, in
// document order.
func FindLocalAll(el *etree.Element, name string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, ch := range el.ChildElements() {
		if localName(ch.Tag) == name {
			out = append(out, ch)
		}
		out = append(out, FindLocalAll(ch, name)...)
	}
	return out
}

// Text returns the trimmed text of the first matching descendant, or "".
func Text(el *etree.Element, name string) string {
	found := FindLocal(el, name)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func printTraceInfo(action, url string, resp *resty.Response) {
	if !util.HttpTraceEnabled() {
		return
	}

	log.Debugf("%s response info:", action)
	log.Debugf("  URL        : %s", url)
	log.Debugf("  Status Code: %d", resp.StatusCode())
	log.Debugf("  Time       : %s", resp.Time())
	log.Debugf("  Body       : %s", resp.String())

	ti := resp.Request.TraceInfo()
	log.Debugf("  DNSLookup  : %s", ti.DNSLookup)
	log.Debugf("  ConnTime   : %s", ti.ConnTime)
	log.Debugf("  TotalTime  : %s", ti.TotalTime)
}
