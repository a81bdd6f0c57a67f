package owner

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/retail-banking-ledger/internal/domain/shared"
)

const (
	ibanCountry  = "TR"
	ibanBankCode = "00099"
	ibanLength   = 26
)

// NewAccountNumber returns a random 16 digit account number.
func NewAccountNumber() string {
	var b strings.Builder
	b.WriteByte(byte('1' + rand.IntN(9)))
	for i := 1; i < 16; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// IBANFor builds a Turkish IBAN around the account number with ISO 13616
// check digits.
func IBANFor(accountNumber string) string {
	bban := ibanBankCode + "0" + accountNumber
	check := 98 - mod97(bban+lettersToDigits(ibanCountry)+"00")
	return ibanCountry + twoDigits(check) + bban
}

// NormalizeIBAN strips whitespace and upper-cases s.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidateIBAN checks the format and the mod-97 checksum of iban.
func ValidateIBAN(iban string) error {
	iban = NormalizeIBAN(iban)
	if len(iban) < 15 || len(iban) > 34 {
		return shared.Errorf(shared.KindInvalidRequest, "IBAN %q has invalid length", iban)
	}
	if strings.HasPrefix(iban, ibanCountry) && len(iban) != ibanLength {
		return shared.Errorf(shared.KindInvalidRequest, "TR IBAN %q must be %d characters", iban, ibanLength)
	}
	for _, r := range iban {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') {
			return shared.Errorf(shared.KindInvalidRequest, "IBAN %q contains invalid characters", iban)
		}
	}
	rearranged := iban[4:] + iban[:4]
	if mod97(lettersToDigits(rearranged)) != 1 {
		return shared.Errorf(shared.KindInvalidRequest, "IBAN %q has invalid check digits", iban)
	}
	return nil
}

func lettersToDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteString(strconv.Itoa(int(r-'A') + 10))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mod97 computes the remainder piecewise so arbitrarily long numbers fit in an int.
func mod97(digits string) int {
	rem := 0
	for _, r := range digits {
		rem = (rem*10 + int(r-'0')) % 97
	}
	return rem
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
