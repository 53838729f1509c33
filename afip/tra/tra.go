// Package tra builds and signs the WSAA access-request document
// (loginTicketRequest, "TRA").
package tra

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/resguar/go-afip-client/afip"
)

var logger = logrus.WithField("component", "afip.tra")

// WSAA timestamps are expressed in the authority's fixed offset.
var argentina = time.FixedZone("-03:00", -3*60*60)

const timeLayout = "2006-01-02T15:04:05.000-07:00"

// validity window of a freshly generated request
const requestLifetime = 24 * time.Hour

// LoginTicketRequest is immutable once built; XML holds the exact bytes
// that get signed.
type LoginTicketRequest struct {
	Service        string
	Source         string
	Destination    string
	UniqueID       uint32
	GenerationTime time.Time
	ExpirationTime time.Time
	XML            []byte
}

// lastUniqueID makes request ids strictly increasing process-wide. WSAA
// rejects a reused id, and plain Unix seconds collide under rapid calls.
var lastUniqueID atomic.Uint64

func nextUniqueID(now time.Time) uint32 {
	for {
		last := lastUniqueID.Load()
		candidate := uint64(now.Unix())
		if candidate <= last {
			candidate = last + 1
		}
		if lastUniqueID.CompareAndSwap(last, candidate) {
			// stays far below the xs:unsignedInt ceiling for decades
			return uint32(candidate)
		}
	}
}

// BuildLoginTicketRequest assembles the TRA for the target service. The
// source CN defaults to the CUIT when the certificate subject is unknown.
func BuildLoginTicketRequest(service string, cuit afip.Cuit, env afip.Environment, sourceCN string) (*LoginTicketRequest, error) {
	if service == "" {
		return nil, fmt.Errorf("target service name is empty")
	}

	cn := sourceCN
	if cn == "" {
		cn = string(cuit)
	}

	now := time.Now().In(argentina)
	r := &LoginTicketRequest{
		Service:        service,
		Source:         fmt.Sprintf("CN=%s,O=AFIP,C=AR,SERIALNUMBER=CUIT %s", cn, cuit),
		Destination:    env.Destination(),
		UniqueID:       nextUniqueID(now),
		GenerationTime: now,
		ExpirationTime: now.Add(requestLifetime),
	}

	xml, err := renderTRA(r)
	if err != nil {
		return nil, fmt.Errorf("render loginTicketRequest: %w", err)
	}
	r.XML = xml

	logger.Debugf("built TRA for service %s, uniqueId %d", service, r.UniqueID)
	return r, nil
}

// renderTRA writes the TRA without indentation: the signed bytes must not
// pick up cosmetic whitespace.
func renderTRA(r *LoginTicketRequest) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("source").SetText(r.Source)
	header.CreateElement("destination").SetText(r.Destination)
	header.CreateElement("uniqueId").SetText(strconv.FormatUint(uint64(r.UniqueID), 10))
	header.CreateElement("generationTime").SetText(r.GenerationTime.Format(timeLayout))
	header.CreateElement("expirationTime").SetText(r.ExpirationTime.Format(timeLayout))

	root.CreateElement("service").SetText(r.Service)

	return doc.WriteToBytes()
}
