package vanstock

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// codeDigits is the confirmation code length. Codes are relayed verbally
// or over the phone, so they stay short enough to transcribe.
const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// CodePair holds one freshly issued pair of confirmation codes together
// with their hashes. Plaintext is handed to the caller exactly once.
type CodePair struct {
	InitiatorCode     string
	SalesRepCode      string
	InitiatorCodeHash string
	SalesRepCodeHash  string
}

// CodeIssuer mints confirmation code pairs. The zero value is usable.
type CodeIssuer struct {
	// cost overrides the bcrypt cost in tests; 0 means bcrypt.DefaultCost.
	cost int
}

// NewCodeIssuer returns a CodeIssuer with the default hashing cost.
func NewCodeIssuer() *CodeIssuer {
	return &CodeIssuer{}
}

// IssuePair generates two independent numeric codes and their hashes.
func (i *CodeIssuer) IssuePair() (CodePair, error) {
	initiatorCode, err := randomCode()
	if err != nil {
		return CodePair{}, err
	}
	repCode, err := randomCode()
	if err != nil {
		return CodePair{}, err
	}
	cost := i.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	initiatorHash, err := bcrypt.GenerateFromPassword([]byte(initiatorCode), cost)
	if err != nil {
		return CodePair{}, err
	}
	repHash, err := bcrypt.GenerateFromPassword([]byte(repCode), cost)
	if err != nil {
		return CodePair{}, err
	}
	return CodePair{
		InitiatorCode:     initiatorCode,
		SalesRepCode:      repCode,
		InitiatorCodeHash: string(initiatorHash),
		SalesRepCodeHash:  string(repHash),
	}, nil
}

// VerifyCode checks a presented code against a stored hash. bcrypt's
// comparison does not leak timing about how close the guess was.
func VerifyCode(hash, presented string) bool {
	if hash == "" || presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
