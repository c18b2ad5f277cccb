package calldata

import (
	"bytes"
	"sort"
	"sync"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// selectorLength is the size of the function selector prefixed to every payload.
const selectorLength = 4

// Registry holds the schemas of the outbound contract functions and encodes calls against them.
// It is safe for concurrent use.
type Registry struct {
	methods      map[string]abi.Method
	methodsMutex sync.RWMutex
}

// NewRegistry creates a registry holding the given functions.
//
// Parameters:
// - functions: the function schemas to register.
//
// Returns:
// - *Registry: the new registry.
// - error: an error if a schema is invalid or two functions clash.
func NewRegistry(functions ...Function) (*Registry, error) {
	r := &Registry{methods: make(map[string]abi.Method)}
	for _, fn := range functions {
		if err := r.Register(fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a function schema. Names and selectors must be unique within the registry.
//
// Parameters:
// - fn: the function schema.
//
// Returns:
// - error: ErrDuplicateFunction or ErrSelectorCollision on a clash, or a schema error.
func (r *Registry) Register(fn Function) error {
	method, err := fn.method()
	if err != nil {
		return err
	}

	r.methodsMutex.Lock()
	defer r.methodsMutex.Unlock()

	if _, exists := r.methods[fn.Name]; exists {
		return errors.Wrapf(commonerrors.ErrDuplicateFunction, "%s", fn.Name)
	}
	for _, other := range r.methods {
		if bytes.Equal(other.ID, method.ID) {
			return errors.Wrapf(commonerrors.ErrSelectorCollision, "%s and %s", other.Sig, method.Sig)
		}
	}

	r.methods[fn.Name] = method
	return nil
}

// method returns the registered method by name.
func (r *Registry) method(name string) (abi.Method, error) {
	r.methodsMutex.RLock()
	method, ok := r.methods[name]
	r.methodsMutex.RUnlock()

	if !ok {
		return abi.Method{}, errors.Wrapf(commonerrors.ErrUnknownFunction, "%s", name)
	}
	return method, nil
}

// Signature returns the canonical signature of a function, e.g. "update_gas_fee(uint256)".
func (r *Registry) Signature(name string) (string, error) {
	method, err := r.method(name)
	if err != nil {
		return "", err
	}
	return method.Sig, nil
}

// Selector returns the 4-byte selector of a function.
func (r *Registry) Selector(name string) ([]byte, error) {
	method, err := r.method(name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), method.ID...), nil
}

// Names returns the registered function names in lexical order.
func (r *Registry) Names() []string {
	r.methodsMutex.RLock()
	defer r.methodsMutex.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode produces the call data for a function: selector followed by the ABI-encoded arguments.
// Nothing is returned unless every argument conforms to the schema.
//
// Parameters:
// - name: the function name.
// - args: one value tree per function input, in declared order.
//
// Returns:
// - []byte: the call data.
// - error: ErrUnknownFunction, or an error wrapping ErrMalformedInput.
func (r *Registry) Encode(name string, args ...Value) ([]byte, error) {
	method, err := r.method(name)
	if err != nil {
		return nil, err
	}
	return encode(method, args)
}

// Decode recovers the function name and argument values from call data produced by Encode.
//
// Parameters:
// - data: the call data.
//
// Returns:
// - string: the function name matched by selector.
// - []Value: the decoded arguments in declared order.
// - error: an error if the selector is unknown or the arguments cannot be unpacked.
func (r *Registry) Decode(data []byte) (string, []Value, error) {
	if len(data) < selectorLength {
		return "", nil, errors.Wrapf(commonerrors.ErrMalformedInput, "call data too short: %d bytes", len(data))
	}

	r.methodsMutex.RLock()
	var (
		method abi.Method
		found  bool
	)
	for _, m := range r.methods {
		if bytes.Equal(m.ID, data[:selectorLength]) {
			method, found = m, true
			break
		}
	}
	r.methodsMutex.RUnlock()

	if !found {
		return "", nil, errors.Wrapf(commonerrors.ErrUnknownFunction, "selector %x", data[:selectorLength])
	}

	values, err := decode(method, data[selectorLength:])
	if err != nil {
		return "", nil, err
	}
	return method.Name, values, nil
}
