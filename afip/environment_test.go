package afip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_Destination(t *testing.T) {
	assert.Equal(t, "CN=wsaahomo,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239", Test.Destination())
	assert.Equal(t, "CN=wsaa,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239", Prod.Destination())
}

func TestEnvironment_URLs(t *testing.T) {
	assert.Equal(t, "https://wsaahomo.afip.gov.ar/ws/services/LoginCms", Test.WsaaURL())
	assert.Equal(t, "https://wswhomo.afip.gov.ar/wsfev1/service.asmx", Test.WsfeURL())
	assert.Equal(t, "https://wsaa.afip.gov.ar/ws/services/LoginCms", Prod.WsaaURL())
	assert.Equal(t, "https://servicios1.afip.gov.ar/wsfev1/service.asmx", Prod.WsfeURL())
}

func TestEnvironment_UnmarshalText(t *testing.T) {
	var e Environment

	require.NoError(t, e.UnmarshalText([]byte("production")))
	assert.Equal(t, Prod, e)

	require.NoError(t, e.UnmarshalText([]byte(" Test ")))
	assert.Equal(t, Test, e)

	assert.Error(t, e.UnmarshalText([]byte("staging")))
}

func TestToken_Valid(t *testing.T) {
	now := time.Now()

	tok := Token{Token: "T", Sign: "S", ExpirationTime: now.Add(time.Hour)}
	assert.True(t, tok.Valid(now))

	expired := Token{Token: "T", Sign: "S", ExpirationTime: now.Add(-time.Minute)}
	assert.False(t, expired.Valid(now))

	noToken := Token{Sign: "S", ExpirationTime: now.Add(time.Hour)}
	assert.False(t, noToken.Valid(now))

	noExpiration := Token{Token: "T", Sign: "S"}
	assert.False(t, noExpiration.Valid(now))

	var nilToken *Token
	assert.False(t, nilToken.Valid(now))
}

func TestToken_RemainingValidity(t *testing.T) {
	now := time.Now()
	tok := Token{Token: "T", Sign: "S", ExpirationTime: now.Add(30 * time.Minute)}
	assert.Equal(t, 30*time.Minute, tok.RemainingValidity(now))
}
