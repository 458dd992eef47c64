package supplier

import (
	"fmt"
	"sync"
)

// Decoder turns one raw stream record's payload into one or more decoded
// payloads. The default decoder (used whenever decoding is disabled) is the
// identity decoder: it returns the raw bytes unchanged, as a single-element
// slice.
type Decoder interface {
	Decode(raw []byte) ([][]byte, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(raw []byte) ([][]byte, error)

func (f DecoderFunc) Decode(raw []byte) ([][]byte, error) { return f(raw) }

type identityDecoder struct{}

func (identityDecoder) Decode(raw []byte) ([][]byte, error) {
	return [][]byte{raw}, nil
}

// DecoderFactory builds a fresh Decoder instance. Decoders are registered by
// name at init time and looked up by name at Supplier construction time,
// the same way database/sql resolves pluggable drivers: construction fails
// loudly if the name requested is not registered.
type DecoderFactory func() Decoder

var (
	decoderRegistryMu sync.RWMutex
	decoderRegistry   = map[string]DecoderFactory{}
)

// RegisterDecoder makes a named Decoder implementation available to
// NewSupplier's WithDecoder(name) option. It is expected to be called from
// an init() function in a decoder plugin package, mirroring
// sql.Register.
func RegisterDecoder(name string, factory DecoderFactory) {
	decoderRegistryMu.Lock()
	defer decoderRegistryMu.Unlock()
	if name == "" || factory == nil {
		panic("supplier: RegisterDecoder requires a name and a non-nil factory")
	}
	decoderRegistry[name] = factory
}

// lookupDecoder resolves a registered decoder by name. It returns a
// ConfigurationError if decoding was requested but the name is unknown.
func lookupDecoder(name string) (Decoder, error) {
	if name == "" {
		return identityDecoder{}, nil
	}

	decoderRegistryMu.RLock()
	factory, ok := decoderRegistry[name]
	decoderRegistryMu.RUnlock()

	if !ok {
		return nil, newConfigurationError(fmt.Sprintf("decoder %q is not registered", name))
	}

	return factory(), nil
}
