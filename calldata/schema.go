package calldata

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// Kind identifies the shape of a schema node.
type Kind int

const (
	// KindAddress is a 20-byte account identifier.
	KindAddress Kind = iota
	// KindUint is an N-bit unsigned integer.
	KindUint
	// KindDynamicArray is a runtime-length sequence.
	KindDynamicArray
	// KindFixedArray is a sequence of exactly Size elements.
	KindFixedArray
	// KindTuple is a fixed-arity heterogeneous grouping.
	KindTuple
)

// Node describes the type of a single function argument as a tree.
//
// Fields:
// - Kind: the node kind.
// - Bits: the integer width for KindUint.
// - Elem: the element node for array kinds.
// - Size: the element count for KindFixedArray.
// - Fields: the ordered members for KindTuple.
type Node struct {
	Kind   Kind
	Bits   int
	Elem   *Node
	Size   int
	Fields []Param
}

// Param is a named schema node.
type Param struct {
	Name string
	Node Node
}

// AddressType returns an address node.
func AddressType() Node {
	return Node{Kind: KindAddress}
}

// UintType returns an unsigned integer node of the given width.
func UintType(bits int) Node {
	return Node{Kind: KindUint, Bits: bits}
}

// Uint256 returns a 256-bit unsigned integer node.
func Uint256() Node {
	return UintType(256)
}

// DynamicArray returns a runtime-length array node of elem.
func DynamicArray(elem Node) Node {
	return Node{Kind: KindDynamicArray, Elem: &elem}
}

// FixedArray returns an array node holding exactly size elements of elem.
func FixedArray(elem Node, size int) Node {
	return Node{Kind: KindFixedArray, Elem: &elem, Size: size}
}

// TupleType returns a tuple node with the given ordered members.
func TupleType(fields ...Param) Node {
	return Node{Kind: KindTuple, Fields: fields}
}

// Field names a node for use as a function input or tuple member.
func Field(name string, node Node) Param {
	return Param{Name: name, Node: node}
}

// marshaling converts the node into the go-ethereum JSON ABI form, where array
// dimensions are appended to the element type and tuple members travel as components.
func (n Node) marshaling(name string) (abi.ArgumentMarshaling, error) {
	switch n.Kind {
	case KindAddress:
		return abi.ArgumentMarshaling{Name: name, Type: "address"}, nil

	case KindUint:
		if n.Bits <= 0 || n.Bits > 256 || n.Bits%8 != 0 {
			return abi.ArgumentMarshaling{}, errors.Errorf("invalid integer width %d for %q", n.Bits, name)
		}
		return abi.ArgumentMarshaling{Name: name, Type: fmt.Sprintf("uint%d", n.Bits)}, nil

	case KindDynamicArray, KindFixedArray:
		if n.Elem == nil {
			return abi.ArgumentMarshaling{}, errors.Errorf("array %q has no element type", name)
		}
		inner, err := n.Elem.marshaling(name)
		if err != nil {
			return abi.ArgumentMarshaling{}, err
		}
		if n.Kind == KindDynamicArray {
			inner.Type += "[]"
		} else {
			if n.Size <= 0 {
				return abi.ArgumentMarshaling{}, errors.Errorf("fixed array %q has invalid size %d", name, n.Size)
			}
			inner.Type += fmt.Sprintf("[%d]", n.Size)
		}
		return inner, nil

	case KindTuple:
		components := make([]abi.ArgumentMarshaling, 0, len(n.Fields))
		for _, field := range n.Fields {
			component, err := field.Node.marshaling(field.Name)
			if err != nil {
				return abi.ArgumentMarshaling{}, err
			}
			components = append(components, component)
		}
		return abi.ArgumentMarshaling{Name: name, Type: "tuple", Components: components}, nil
	}

	return abi.ArgumentMarshaling{}, errors.Errorf("unknown node kind %d for %q", n.Kind, name)
}

// Type compiles the node into a go-ethereum ABI type.
//
// Returns:
// - abi.Type: the compiled type.
// - error: an error if the node is not a valid ABI shape.
func (n Node) Type() (abi.Type, error) {
	m, err := n.marshaling("value")
	if err != nil {
		return abi.Type{}, err
	}

	typ, err := abi.NewType(m.Type, "", m.Components)
	if err != nil {
		return abi.Type{}, errors.Wrapf(err, "failed to build abi type %s", m.Type)
	}

	return typ, nil
}

// Function is the schema of one outbound contract function.
type Function struct {
	Name   string
	Inputs []Param
}

// method builds the go-ethereum method, which carries the canonical signature and selector.
func (f Function) method() (abi.Method, error) {
	inputs := make(abi.Arguments, 0, len(f.Inputs))
	for _, param := range f.Inputs {
		typ, err := param.Node.Type()
		if err != nil {
			return abi.Method{}, errors.Wrapf(err, "function %s input %s", f.Name, param.Name)
		}
		inputs = append(inputs, abi.Argument{Name: param.Name, Type: typ})
	}

	return abi.NewMethod(f.Name, f.Name, abi.Function, "nonpayable", false, false, inputs, nil), nil
}
