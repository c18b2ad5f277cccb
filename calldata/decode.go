package calldata

import (
	"math/big"
	"reflect"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// fromGo converts a value unpacked by go-ethereum back into a value tree.
func fromGo(typ abi.Type, rv reflect.Value) (Value, error) {
	switch typ.T {
	case abi.AddressTy:
		addr, ok := rv.Interface().(common.Address)
		if !ok {
			return nil, errors.Errorf("unexpected address value %s", rv.Type())
		}
		return Address(addr.Hex()), nil

	case abi.UintTy:
		if rv.Type() == bigIntType {
			x, overflow := uint256.FromBig(rv.Interface().(*big.Int))
			if overflow {
				return nil, errors.Wrap(commonerrors.ErrMalformedInput, "decoded integer overflows 256 bits")
			}
			return NewUint(x), nil
		}
		return UintFromUint64(rv.Uint()), nil

	case abi.SliceTy, abi.ArrayTy:
		list := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := fromGo(*typ.Elem, rv.Index(i))
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil

	case abi.TupleTy:
		tuple := make(Tuple, 0, len(typ.TupleElems))
		for i, elem := range typ.TupleElems {
			member, err := fromGo(*elem, rv.Field(i))
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, member)
		}
		return tuple, nil
	}

	return nil, errors.Errorf("unsupported abi type %s", typ.String())
}

// decode unpacks the argument section of a payload for the given method.
func decode(method abi.Method, data []byte) ([]Value, error) {
	unpacked, err := method.Inputs.Unpack(data)
	if err != nil {
		return nil, errors.Wrapf(commonerrors.ErrMalformedInput, "failed to unpack %s: %v", method.Name, err)
	}

	values := make([]Value, 0, len(unpacked))
	for i, input := range method.Inputs {
		v, err := fromGo(input.Type, reflect.ValueOf(unpacked[i]))
		if err != nil {
			return nil, errors.Wrapf(err, "argument %s", input.Name)
		}
		values = append(values, v)
	}

	return values, nil
}
