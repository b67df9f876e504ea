package identity

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// ErrInvalidIdentity is returned for strings that are neither an ETH nor a SOL address.
var ErrInvalidIdentity = errors.New("Enter a valid ETH or SOL address")

// Kind is the chain family an address belongs to.
type Kind string

const (
	Invalid Kind = ""
	ETH     Kind = "eth"
	SOL     Kind = "sol"
)

var (
	ethPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	solPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// Classify reports the kind of s. ETH is checked first.
func Classify(s string) Kind {
	switch {
	case ethPattern.MatchString(s):
		return ETH
	case solPattern.MatchString(s):
		return SOL
	default:
		return Invalid
	}
}

// Identity is a validated address. The zero value is invalid.
type Identity struct {
	address string
	kind    Kind
}

// Parse trims s and validates it.
func Parse(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	kind := Classify(s)
	if kind == Invalid {
		return Identity{}, ErrInvalidIdentity
	}
	return Identity{address: s, kind: kind}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identity) String() string { return i.address }
func (i Identity) Kind() Kind     { return i.kind }
func (i Identity) Valid() bool    { return i.kind != Invalid }

// Display returns the EIP-55 checksummed form for ETH addresses and the
// address unchanged otherwise.
func (i Identity) Display() string {
	if i.kind == ETH {
		return Checksum(i.address)
	}
	return i.address
}

// Checksum returns the EIP-55 mixed-case form of an ETH address.
func Checksum(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// IsSolanaPubkey reports whether s decodes to a 32-byte ed25519 public key.
// Syntax classification does not require it; the wallet adapter does.
func IsSolanaPubkey(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}
