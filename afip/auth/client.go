// Package auth implements the WSAA exchange: a signed access request goes
// out, a short-lived token/sign credential pair comes back and is cached.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"

	"github.com/resguar/go-afip-client/afip"
	"github.com/resguar/go-afip-client/afip/cache"
	"github.com/resguar/go-afip-client/afip/cert"
	"github.com/resguar/go-afip-client/afip/soap"
	"github.com/resguar/go-afip-client/afip/tra"
)

const wsaaNS = "http://wsaa.view.sua.dvadac.desein.afip.gov"

const wsaaTimeLayout = "2006-01-02T15:04:05.000-07:00"

// default token lifetime when the response omits expirationTime
const fallbackLifetime = 24 * time.Hour

type Client struct {
	cfg       afip.Config
	certs     *cert.Store
	transport *soap.Client
	tokens    *cache.TokenCache
	locks     keyedLocks
}

func New(cfg afip.Config, certs *cert.Store, transport *soap.Client, tokens *cache.TokenCache) *Client {
	return &Client{
		cfg:       cfg.Normalized(),
		certs:     certs,
		transport: transport,
		tokens:    tokens,
	}
}

// GetToken returns a valid credential pair for the target service,
// reusing the cache when it can and running the full WSAA exchange when it
// cannot. Concurrent misses for the same (service, cuit) are serialized so
// only one TRA is spent.
func (c *Client) GetToken(ctx context.Context, service, cuit string) (*afip.Token, error) {
	normalized, err := c.resolveCuit(cuit)
	if err != nil {
		return nil, &afip.AuthenticationError{Message: err.Error(), Err: err}
	}

	if t, ok := c.tokens.Get(service, string(normalized)); ok {
		log.Debugf("token for %s/%s served from cache", service, normalized)
		return t, nil
	}

	unlock := c.locks.lock(service + "|" + string(normalized))
	defer unlock()

	// double check after taking the lock
	if t, ok := c.tokens.Get(service, string(normalized)); ok {
		return t, nil
	}

	log.Infof("requesting new token for service %s, CUIT %s", service, normalized)

	t, err := c.exchange(ctx, service, normalized)
	if err != nil {
		return nil, err
	}

	c.tokens.Put(service, string(normalized), t)
	return t, nil
}

// HasValidToken reports whether a usable token sits in the cache.
func (c *Client) HasValidToken(service, cuit string) bool {
	normalized, err := c.resolveCuit(cuit)
	if err != nil {
		return false
	}
	_, ok := c.tokens.Get(service, string(normalized))
	return ok
}

// InvalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) InvalidateToken(service, cuit string) {
	normalized, err := c.resolveCuit(cuit)
	if err != nil {
		return
	}
	c.tokens.Delete(service, string(normalized))
}

func (c *Client) resolveCuit(cuit string) (afip.Cuit, error) {
	if cuit == "" {
		cuit = c.cfg.Cuit
	}
	if cuit == "" {
		return "", afip.ErrNoCuit
	}
	return afip.NormalizeCuit(cuit)
}

func (c *Client) exchange(ctx context.Context, service string, cuit afip.Cuit) (*afip.Token, error) {
	certPath, keyPath, passphrase, err := c.certs.Resolve(cuit)
	if err != nil {
		return nil, err
	}
	if err := c.certs.Validate(certPath, keyPath, passphrase); err != nil {
		return nil, err
	}

	sourceCN, err := c.certs.SubjectCN(certPath)
	if err != nil {
		// the CUIT works as CN, the subject is just the nicer value
		sourceCN = ""
	}

	request, err := tra.BuildLoginTicketRequest(service, cuit, c.cfg.Environment, sourceCN)
	if err != nil {
		return nil, &afip.AuthenticationError{Message: "build access request", Err: err}
	}

	cms, err := tra.SignBase64(request.XML, certPath, keyPath, passphrase)
	if err != nil {
		if _, ok := err.(*afip.CertificateError); ok {
			return nil, err
		}
		return nil, &afip.AuthenticationError{Message: "sign access request", Err: err}
	}

	method := etree.NewElement("loginCms")
	method.CreateAttr("xmlns", wsaaNS)
	method.CreateElement("in0").SetText(cms)
	methodDoc := etree.NewDocument()
	methodDoc.SetRoot(method)
	methodXML, err := methodDoc.WriteToBytes()
	if err != nil {
		return nil, &afip.AuthenticationError{Message: "build loginCms request", Err: err}
	}

	response, err := c.transport.Call(ctx, c.cfg.ResolvedWsaaURL(), "loginCms", methodXML)
	if err != nil {
		if te, ok := err.(*afip.TransportError); ok {
			return nil, &afip.AuthenticationError{
				Message:     "WSAA exchange failed",
				FaultCode:   te.FaultCode,
				FaultString: te.FaultString,
				Err:         te,
			}
		}
		return nil, &afip.AuthenticationError{Message: "WSAA exchange failed", Err: err}
	}

	return parseLoginTicketResponse(response)
}

// parseLoginTicketResponse unwraps loginCmsReturn (an XML document escaped
// inside the SOAP response) and extracts the credential pair.
func parseLoginTicketResponse(response *etree.Element) (*afip.Token, error) {
	inner := soap.Text(response, "loginCmsReturn")
	if inner == "" {
		return nil, &afip.AuthenticationError{Message: "empty WSAA response", Err: afip.ErrEmptyResponse}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(inner); err != nil {
		return nil, &afip.AuthenticationError{Message: "malformed loginTicketResponse", Err: err}
	}
	root := doc.Root()

	token := soap.Text(root, "token")
	sign := soap.Text(root, "sign")
	if token == "" || sign == "" {
		// on failure WSAA puts the reason where source normally lives
		if src := soap.Text(root, "source"); src != "" {
			return nil, &afip.AuthenticationError{Message: "WSAA error: " + src}
		}
		return nil, &afip.AuthenticationError{Message: "token or sign missing from WSAA response"}
	}

	now := time.Now()
	t := &afip.Token{
		Token:          token,
		Sign:           sign,
		GenerationTime: now,
		ExpirationTime: now.Add(fallbackLifetime),
	}

	if gen := soap.Text(root, "generationTime"); gen != "" {
		if parsed, err := parseWsaaTime(gen); err == nil {
			t.GenerationTime = parsed
		}
	}
	if exp := soap.Text(root, "expirationTime"); exp != "" {
		parsed, err := parseWsaaTime(exp)
		if err != nil {
			// non-fatal, keep the +24h fallback
			log.Warnf("unparseable expirationTime %q, assuming %s", exp, fallbackLifetime)
		} else {
			t.ExpirationTime = parsed
		}
	}

	log.Debugf("obtained token valid until %s", t.ExpirationTime.Format(time.RFC3339))
	return t, nil
}

func parseWsaaTime(s string) (time.Time, error) {
	if t, err := time.Parse(wsaaTimeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized WSAA timestamp %q", s)
}
