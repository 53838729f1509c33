package tra

import (
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resguar/go-afip-client/afip"
)

func TestBuildLoginTicketRequest(t *testing.T) {
	r, err := BuildLoginTicketRequest("wsfe", "20123456786", afip.Test, "")
	require.NoError(t, err)

	assert.Equal(t, "CN=20123456786,O=AFIP,C=AR,SERIALNUMBER=CUIT 20123456786", r.Source)
	assert.Equal(t, "CN=wsaahomo,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239", r.Destination)
	assert.Equal(t, 24*time.Hour, r.ExpirationTime.Sub(r.GenerationTime))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(r.XML))

	root := doc.Root()
	require.Equal(t, "loginTicketRequest", root.Tag)
	assert.Equal(t, "1.0", root.SelectAttrValue("version", ""))
	assert.Equal(t, "wsfe", root.FindElement("service").Text())
	assert.Equal(t, r.Source, root.FindElement("header/source").Text())
	assert.Equal(t, r.Destination, root.FindElement("header/destination").Text())
	assert.NotEmpty(t, root.FindElement("header/uniqueId").Text())
}

func TestBuildLoginTicketRequest_SubjectCN(t *testing.T) {
	r, err := BuildLoginTicketRequest("wsfe", "20123456786", afip.Prod, "empresa-prod")
	require.NoError(t, err)

	assert.Equal(t, "CN=empresa-prod,O=AFIP,C=AR,SERIALNUMBER=CUIT 20123456786", r.Source)
	assert.Equal(t, "CN=wsaa,O=AFIP,C=AR,SERIALNUMBER=CUIT 33693450239", r.Destination)
}

func TestBuildLoginTicketRequest_NoService(t *testing.T) {
	_, err := BuildLoginTicketRequest("", "20123456786", afip.Test, "")
	assert.Error(t, err)
}

// no whitespace may leak into the signed bytes
func TestRenderTRA_NoIndentation(t *testing.T) {
	r, err := BuildLoginTicketRequest("wsfe", "20123456786", afip.Test, "")
	require.NoError(t, err)
	assert.NotContains(t, string(r.XML), "\n  ")
	assert.NotContains(t, string(r.XML), "\t")
}

func TestNextUniqueID_NeverRepeats(t *testing.T) {
	const workers = 8
	const perWorker = 1250

	var mu sync.Mutex
	seen := make(map[uint32]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]uint32, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, nextUniqueID(time.Now()))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id], "uniqueId %d issued twice", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
