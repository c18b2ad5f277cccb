package calldata

import (
	"math/big"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Value is a node of a semantic argument tree. It is matched against a schema node at encode time.
type Value interface {
	isValue()
}

// Address is an account identifier in hex form, with or without the 0x prefix.
type Address string

// Uint is an unsigned integer of up to 256 bits.
type Uint struct {
	v uint256.Int
}

// List holds the elements of a dynamic or fixed-size array.
type List []Value

// Tuple holds the members of a tuple in declared order.
type Tuple []Value

func (Address) isValue() {}
func (Uint) isValue()    {}
func (List) isValue()    {}
func (Tuple) isValue()   {}

// NewUint wraps a 256-bit integer. A nil input is treated as zero, so callers validate presence first.
func NewUint(x *uint256.Int) Uint {
	var u Uint
	if x != nil {
		u.v.Set(x)
	}
	return u
}

// UintFromUint64 wraps a machine integer.
func UintFromUint64(x uint64) Uint {
	var u Uint
	u.v.SetUint64(x)
	return u
}

// Big returns the integer as a new big.Int.
func (u Uint) Big() *big.Int {
	return u.v.ToBig()
}

// String returns the decimal representation of the integer.
func (u Uint) String() string {
	return u.v.Dec()
}

// ParseAddress parses a hex address string into its 20-byte form.
//
// Parameters:
// - s: the address string.
//
// Returns:
// - common.Address: the parsed address.
// - error: ErrMalformedInput if s is not a 40-digit hex string.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(commonerrors.ErrMalformedInput, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Uints wraps a slice of 256-bit integers as a list.
func Uints(xs []*uint256.Int) List {
	list := make(List, 0, len(xs))
	for _, x := range xs {
		list = append(list, NewUint(x))
	}
	return list
}

// Addresses wraps a slice of address strings as a list.
func Addresses(xs []string) List {
	list := make(List, 0, len(xs))
	for _, x := range xs {
		list = append(list, Address(x))
	}
	return list
}
