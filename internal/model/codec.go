package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// envelope is the on-the-wire form of a fitted regressor
type envelope struct {
	Kind     Kind
	Linear   *Linear
	Windowed *Windowed
}

// Marshal serializes a regressor into opaque bytes
func Marshal(r Regressor) ([]byte, error) {
	env := envelope{Kind: r.Kind()}
	switch m := r.(type) {
	case *Linear:
		env.Linear = m
	case *Windowed:
		env.Windowed = m
	default:
		return nil, fmt.Errorf("cannot serialize regressor of type %T", r)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal restores a regressor produced by Marshal
func Unmarshal(data []byte) (Regressor, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	switch env.Kind {
	case KindLinear:
		if env.Linear == nil {
			return nil, fmt.Errorf("decode model: missing linear state")
		}
		return env.Linear, nil
	case KindWindowed:
		if env.Windowed == nil {
			return nil, fmt.Errorf("decode model: missing windowed state")
		}
		return env.Windowed, nil
	default:
		return nil, fmt.Errorf("decode model: unknown kind %q", env.Kind)
	}
}
