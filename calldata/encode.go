package calldata

import (
	"fmt"
	"math/big"
	"reflect"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

var bigIntType = reflect.TypeOf(&big.Int{})

// Check reports whether v conforms to the node, without producing any output.
//
// Parameters:
// - node: the schema node.
// - v: the value tree.
//
// Returns:
// - error: an error wrapping ErrMalformedInput if the value does not fit the schema.
func Check(node Node, v Value) error {
	typ, err := node.Type()
	if err != nil {
		return err
	}
	_, err = toGo(typ, v, "value")
	return err
}

// toGo converts a value tree into the Go value go-ethereum packs for typ.
// Array and tuple values are built from typ.GetType(), so the packer sees exactly the shape it expects.
func toGo(typ abi.Type, v Value, path string) (reflect.Value, error) {
	switch typ.T {
	case abi.AddressTy:
		a, ok := v.(Address)
		if !ok {
			return reflect.Value{}, mismatch(path, "address", v)
		}
		addr, err := ParseAddress(string(a))
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "at %s", path)
		}
		return reflect.ValueOf(addr), nil

	case abi.UintTy:
		u, ok := v.(Uint)
		if !ok {
			return reflect.Value{}, mismatch(path, "uint", v)
		}
		if u.v.BitLen() > typ.Size {
			return reflect.Value{}, errors.Wrapf(commonerrors.ErrMalformedInput,
				"value %s at %s overflows uint%d", u.String(), path, typ.Size)
		}
		goType := typ.GetType()
		if goType == bigIntType {
			return reflect.ValueOf(u.Big()), nil
		}
		rv := reflect.New(goType).Elem()
		rv.SetUint(u.v.Uint64())
		return rv, nil

	case abi.SliceTy:
		list, ok := v.(List)
		if !ok {
			return reflect.Value{}, mismatch(path, "list", v)
		}
		rv := reflect.MakeSlice(typ.GetType(), len(list), len(list))
		for i, elem := range list {
			ev, err := toGo(*typ.Elem, elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			rv.Index(i).Set(ev)
		}
		return rv, nil

	case abi.ArrayTy:
		list, ok := v.(List)
		if !ok {
			return reflect.Value{}, mismatch(path, "list", v)
		}
		if len(list) != typ.Size {
			return reflect.Value{}, errors.Wrapf(commonerrors.ErrMalformedInput,
				"%s has %d elements, expected exactly %d", path, len(list), typ.Size)
		}
		rv := reflect.New(typ.GetType()).Elem()
		for i, elem := range list {
			ev, err := toGo(*typ.Elem, elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			rv.Index(i).Set(ev)
		}
		return rv, nil

	case abi.TupleTy:
		tuple, ok := v.(Tuple)
		if !ok {
			return reflect.Value{}, mismatch(path, "tuple", v)
		}
		if len(tuple) != len(typ.TupleElems) {
			return reflect.Value{}, errors.Wrapf(commonerrors.ErrMalformedInput,
				"%s has %d members, expected %d", path, len(tuple), len(typ.TupleElems))
		}
		rv := reflect.New(typ.TupleType).Elem()
		for i, elem := range typ.TupleElems {
			ev, err := toGo(*elem, tuple[i], path+"."+typ.TupleRawNames[i])
			if err != nil {
				return reflect.Value{}, err
			}
			rv.Field(i).Set(ev)
		}
		return rv, nil
	}

	return reflect.Value{}, errors.Errorf("unsupported abi type %s at %s", typ.String(), path)
}

func mismatch(path, want string, got Value) error {
	return errors.Wrapf(commonerrors.ErrMalformedInput, "%s: expected %s, got %T", path, want, got)
}

// encode packs args against the method inputs and prefixes the selector.
func encode(method abi.Method, args []Value) ([]byte, error) {
	if len(args) != len(method.Inputs) {
		return nil, errors.Wrapf(commonerrors.ErrMalformedInput,
			"%s takes %d arguments, got %d", method.Name, len(method.Inputs), len(args))
	}

	goArgs := make([]interface{}, 0, len(args))
	for i, input := range method.Inputs {
		rv, err := toGo(input.Type, args[i], input.Name)
		if err != nil {
			return nil, err
		}
		goArgs = append(goArgs, rv.Interface())
	}

	packed, err := method.Inputs.Pack(goArgs...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s arguments", method.Name)
	}

	payload := make([]byte, 0, len(method.ID)+len(packed))
	payload = append(payload, method.ID...)
	return append(payload, packed...), nil
}
