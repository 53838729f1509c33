package afip

import (
	"fmt"
	"strings"
)

type Environment int

const (
	Test Environment = iota
	Prod
)

func (e Environment) WsaaURL() string {
	switch e {
	case Prod:
		return "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	case Test:
		return "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	}
	panic("Invalid environment")
}

func (e Environment) WsfeURL() string {
	switch e {
	case Prod:
		return "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
	case Test:
		return "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	}
	panic("Invalid environment")
}

// Destination is the WSAA authority DN placed in the loginTicketRequest
// header. No whitespace after the commas, the WSAA schema rejects it.
func (e Environment) Destination() string {
	switch e {
	case Prod:
		return "CN=wsaa,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239"
	case Test:
		return "CN=wsaahomo,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239"
	}
	panic("Invalid environment")
}

func (e Environment) Name() string {
	switch e {
	case Prod:
		return "production"
	case Test:
		return "testing"
	}
	panic("Invalid environment")
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "production", "prod":
		*e = Prod
	case "testing", "test":
		*e = Test
	default:
		return fmt.Errorf("invalid AFIP_ENV: %q (allowed: production, testing)", val)
	}
	return nil
}
