package vanstock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssuePairProducesNumericCodes(t *testing.T) {
	issuer := &CodeIssuer{cost: bcrypt.MinCost}
	pair, err := issuer.IssuePair()
	require.NoError(t, err)

	for _, code := range []string{pair.InitiatorCode, pair.SalesRepCode} {
		require.Len(t, code, codeDigits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
	}

	assert.True(t, VerifyCode(pair.InitiatorCodeHash, pair.InitiatorCode))
	assert.True(t, VerifyCode(pair.SalesRepCodeHash, pair.SalesRepCode))
}

func TestVerifyCodeRejectsEmptyInputs(t *testing.T) {
	issuer := &CodeIssuer{cost: bcrypt.MinCost}
	pair, err := issuer.IssuePair()
	require.NoError(t, err)

	assert.False(t, VerifyCode("", pair.InitiatorCode))
	assert.False(t, VerifyCode(pair.InitiatorCodeHash, ""))
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	issuer := &CodeIssuer{cost: bcrypt.MinCost}
	pair, err := issuer.IssuePair()
	require.NoError(t, err)

	wrong := "000000"
	if pair.InitiatorCode == wrong {
		wrong = "000001"
	}
	assert.False(t, VerifyCode(pair.InitiatorCodeHash, wrong))
}
