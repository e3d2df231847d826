package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SeedValidator validates seed payloads against JSON Schemas compiled via
// santhosh-tekuri/jsonschema. Compiled schemas are cached by name.
type SeedValidator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewSeedValidator returns a validator with an empty schema cache.
func NewSeedValidator() *SeedValidator {
	return &SeedValidator{
		cache: make(map[string]*jsonschema.Schema),
	}
}

// Validate ensures the payload matches the schema definition registered under name.
func (v *SeedValidator) Validate(name string, schemaDefinition, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is required for validation")
	}

	compiled, err := v.getOrCompile(name, schemaDefinition)
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	return nil
}

func (v *SeedValidator) getOrCompile(name string, schemaDefinition []byte) (*jsonschema.Schema, error) {
	key := fmt.Sprintf("memory://seeds/%s", name)

	v.mu.RLock()
	compiled, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// another goroutine may have populated the cache while we were waiting
	if compiled, ok = v.cache[key]; ok {
		return compiled, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(key, bytes.NewReader(schemaDefinition)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", key, err)
	}

	newCompiled, err := compiler.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", key, err)
	}

	v.cache[key] = newCompiled
	return newCompiled, nil
}
