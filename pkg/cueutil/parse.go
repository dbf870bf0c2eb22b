// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

type (
	// Schema is a compiled CUE definition that documents are validated
	// against. A Schema is not safe for concurrent use.
	Schema struct {
		ctx         *cue.Context
		def         cue.Value
		maxFileSize int64
		concrete    bool
	}

	// Option configures a Schema.
	Option func(*Schema)
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(s *Schema) { s.maxFileSize = n }
}

// WithConcrete requires every value of a document to be concrete. The
// default accepts documents that leave optional fields out.
func WithConcrete(concrete bool) Option {
	return func(s *Schema) { s.concrete = concrete }
}

// CompileSchema compiles src and looks up definition (e.g. "#Config").
func CompileSchema(src []byte, definition string, opts ...Option) (*Schema, error) {
	s := &Schema{
		ctx:         cuecontext.New(),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	schemaValue := s.ctx.CompileBytes(src)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	s.def = schemaValue.LookupPath(cue.ParsePath(definition))
	if s.def.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", definition, s.def.Err())
	}
	return s, nil
}

// DecodeCUE compiles a CUE document, validates it against the schema and
// decodes it into a generic map.
func (s *Schema) DecodeCUE(data []byte, filename string) (map[string]any, error) {
	if err := CheckFileSize(data, s.maxFileSize, filename); err != nil {
		return nil, err
	}

	userValue := s.ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}
	return s.decode(userValue, filename)
}

// DecodeValue validates an already decoded document, such as the result of
// a TOML or JSON decoder, against the schema.
func (s *Schema) DecodeValue(doc any, filename string) (map[string]any, error) {
	userValue := s.ctx.Encode(doc)
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}
	return s.decode(userValue, filename)
}

func (s *Schema) decode(userValue cue.Value, filename string) (map[string]any, error) {
	unified := s.def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(s.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return out, nil
}
