package crypto

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the byte length of every ledger identity.
const AddressLength = 20

// AddressPrefix is the human-readable part used when rendering addresses.
type AddressPrefix string

const (
	// OwnerPrefix tags externally controlled identities (borrowers, depositors,
	// front ends, stakers).
	OwnerPrefix AddressPrefix = "sol"
	// ModulePrefix tags accounts derived for engine-held balances.
	ModulePrefix AddressPrefix = "solmod"
)

var errAddressLength = errors.New("crypto: address must be 20 bytes long")

// Address identifies an owner or a module account. The zero value is the
// "no address" marker used for untagged deposits.
type Address [AddressLength]byte

// ZeroAddress is the empty identity.
var ZeroAddress Address

// BytesToAddress copies b into an Address. It fails unless b is exactly 20
// bytes long.
func BytesToAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, errAddressLength
	}
	copy(addr[:], b)
	return addr, nil
}

// MustBytesToAddress is BytesToAddress for static inputs.
func MustBytesToAddress(b []byte) Address {
	addr, err := BytesToAddress(b)
	if err != nil {
		panic(err)
	}
	return addr
}

// ModuleAddress derives the deterministic account that holds balances on
// behalf of the named engine module.
func ModuleAddress(name string) Address {
	digest := ethcrypto.Keccak256([]byte("module:" + name))
	return MustBytesToAddress(digest[12:])
}

// IsZero reports whether the address is the empty identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// Compare orders addresses bytewise.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}

// Encode renders the address with the supplied prefix.
func (a Address) Encode(prefix AddressPrefix) string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) String() string {
	return a.Encode(OwnerPrefix)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses a bech32 address carrying either known prefix.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	switch AddressPrefix(prefix) {
	case OwnerPrefix, ModulePrefix:
	default:
		return Address{}, fmt.Errorf("crypto: unknown address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return BytesToAddress(conv)
}
