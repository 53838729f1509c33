package afip

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCuit_Valid(t *testing.T) {
	for _, cuit := range []string{"33693450239", "20111111112", "20123456786"} {
		assert.NoError(t, ValidateCuit(cuit), cuit)
	}
}

func TestValidateCuit_WrongLength(t *testing.T) {
	assert.Error(t, ValidateCuit(""))
	assert.Error(t, ValidateCuit("2012345678"))
	assert.Error(t, ValidateCuit("201234567860"))
}

func TestValidateCuit_NonNumeric(t *testing.T) {
	assert.Error(t, ValidateCuit("2012345678X"))
}

// mutating any single digit of a valid CUIT must break the checksum in the
// overwhelming majority of cases
func TestValidateCuit_SingleDigitMutations(t *testing.T) {
	const valid = "20123456786"
	rejected, total := 0, 0
	for pos := 0; pos < len(valid); pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[pos] == d {
				continue
			}
			mutated := valid[:pos] + string(d) + valid[pos+1:]
			total++
			if ValidateCuit(mutated) != nil {
				rejected++
			}
		}
	}
	fmt.Printf("rejected %d of %d mutations\n", rejected, total)
	assert.GreaterOrEqual(t, rejected*10, total*9, "mod-11 should catch at least 90%% of single-digit errors")
}

func TestNormalizeCuit(t *testing.T) {
	c, err := NormalizeCuit("20-12345678-6")
	require.NoError(t, err)
	assert.Equal(t, Cuit("20123456786"), c)

	_, err = NormalizeCuit("20-12345678-5")
	assert.Error(t, err)
}

func TestFormatCuit(t *testing.T) {
	assert.Equal(t, "20-12345678-6", FormatCuit("20123456786"))
	assert.Equal(t, "not a cuit", FormatCuit("not a cuit"))
}
