package owner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIBAN(t *testing.T) {
	t.Run("GeneratedIBANsValidate", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			iban := IBANFor(NewAccountNumber())
			assert.Len(t, iban, ibanLength)
			assert.NoError(t, ValidateIBAN(iban), iban)
		}
	})

	t.Run("KnownValidIBAN", func(t *testing.T) {
		assert.NoError(t, ValidateIBAN("TR33 0006 1005 1978 6457 8413 26"))
		assert.NoError(t, ValidateIBAN("GB82 WEST 1234 5698 7654 32"))
	})

	t.Run("TamperedDigit", func(t *testing.T) {
		assert.Error(t, ValidateIBAN("TR330006100519786457841327"))
	})

	t.Run("InvalidCharacters", func(t *testing.T) {
		assert.Error(t, ValidateIBAN("TR33000610051978645784132!"))
	})
}
