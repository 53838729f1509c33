package fe

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// WireAuth is the credential block every WSFE operation carries.
type WireAuth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  int64  `xml:"Cuit"`
}

// feCAESolicitar is the FECAESolicitar method element. Field order follows
// the service schema; WSFE rejects reordered or explicitly-null elements,
// which is why optional blocks are pointers with omitempty.
type feCAESolicitar struct {
	XMLName  xml.Name     `xml:"FECAESolicitar"`
	Xmlns    string       `xml:"xmlns,attr"`
	Auth     WireAuth     `xml:"Auth"`
	FeCAEReq FeCAERequest `xml:"FeCAEReq"`
}

type FeCAERequest struct {
	FeCabReq FeCabRequest `xml:"FeCabReq"`
	FeDetReq FeDetRequest `xml:"FeDetReq"`
}

type FeCabRequest struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type FeDetRequest struct {
	Detail []FECAEDetRequest `xml:"FECAEDetRequest"`
}

type FECAEDetRequest struct {
	Concepto               int             `xml:"Concepto"`
	DocTipo                int             `xml:"DocTipo"`
	DocNro                 int64           `xml:"DocNro"`
	CbteDesde              int64           `xml:"CbteDesde"`
	CbteHasta              int64           `xml:"CbteHasta"`
	CbteFch                string          `xml:"CbteFch"`
	ImpTotal               decimal.Decimal `xml:"ImpTotal"`
	ImpTotConc             decimal.Decimal `xml:"ImpTotConc"`
	ImpNeto                decimal.Decimal `xml:"ImpNeto"`
	ImpOpEx                decimal.Decimal `xml:"ImpOpEx"`
	ImpTrib                decimal.Decimal `xml:"ImpTrib"`
	ImpIVA                 decimal.Decimal `xml:"ImpIVA"`
	FchServDesde           string          `xml:"FchServDesde,omitempty"`
	FchServHasta           string          `xml:"FchServHasta,omitempty"`
	FchVtoPago             string          `xml:"FchVtoPago,omitempty"`
	MonId                  string          `xml:"MonId"`
	MonCotiz               decimal.Decimal `xml:"MonCotiz"`
	CondicionIVAReceptorId int             `xml:"CondicionIVAReceptorId,omitempty"`
	Tributos               *TributosWire   `xml:"Tributos,omitempty"`
	Iva                    *IvaWire        `xml:"Iva,omitempty"`
}

type TributosWire struct {
	Tributo []TributoWire `xml:"Tributo"`
}

type TributoWire struct {
	Id      int             `xml:"Id"`
	Desc    string          `xml:"Desc,omitempty"`
	BaseImp decimal.Decimal `xml:"BaseImp"`
	Alic    decimal.Decimal `xml:"Alic"`
	Importe decimal.Decimal `xml:"Importe"`
}

type IvaWire struct {
	AlicIva []AlicIvaWire `xml:"AlicIva"`
}

type AlicIvaWire struct {
	Id      int             `xml:"Id"`
	BaseImp decimal.Decimal `xml:"BaseImp"`
	Importe decimal.Decimal `xml:"Importe"`
}

// feCompUltimoAutorizado is the FECompUltimoAutorizado method element.
type feCompUltimoAutorizado struct {
	XMLName  xml.Name `xml:"FECompUltimoAutorizado"`
	Xmlns    string   `xml:"xmlns,attr"`
	Auth     WireAuth `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

// feParamGet covers the parameter-table queries that take only credentials.
type feParamGet struct {
	XMLName xml.Name
	Xmlns   string   `xml:"xmlns,attr"`
	Auth    WireAuth `xml:"Auth"`
}
