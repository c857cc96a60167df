package validator

// =============================================================================
// CONTRACT GUARD
// =============================================================================
//
// The CUE schemas sit between the generator and everything that consumes its
// structured output: the manifest on disk and the fact tables the rule engine
// reads. A renamed JSON field or a wrong type would otherwise reach the rules
// as `undefined` and every rule would quietly pass.
//
// When validation fails, fix the producer or the schema. Never relax the
// schema to make a run go through.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed manifest_schema.cue facts_schema.cue
var schemaFS embed.FS

// schema is one compiled CUE file and the definition data is checked against.
type schema struct {
	ctx  *cue.Context
	def  cue.Value
	path string
}

func loadSchema(file, definition string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	compiled := ctx.CompileBytes(schemaBytes)
	if compiled.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, compiled.Err())
	}

	def := compiled.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}

	return &schema{ctx: ctx, def: def, path: definition}, nil
}

func (s *schema) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}
	return s.def.Unify(dataValue), nil
}

func (s *schema) validateJSON(jsonBytes []byte) error {
	unified, err := s.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("%s validation failed: %w", s.path, err)
	}
	return nil
}

func (s *schema) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return s.validateJSON(jsonBytes)
}

// errorList returns one message per schema violation.
func (s *schema) errorList(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := s.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate()
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// ManifestValidator validates generation manifests against #Manifest.
type ManifestValidator struct {
	s *schema
}

// NewManifestValidator creates a validator with the embedded manifest schema.
func NewManifestValidator() (*ManifestValidator, error) {
	s, err := loadSchema("manifest_schema.cue", "#Manifest")
	if err != nil {
		return nil, err
	}
	return &ManifestValidator{s: s}, nil
}

// Validate checks that the manifest conforms to the schema.
// Returns nil if valid, or a detailed error explaining what failed.
func (v *ManifestValidator) Validate(manifest interface{}) error {
	return v.s.validate(manifest)
}

// ValidateJSON validates manifest JSON bytes directly, e.g. a file on disk.
func (v *ManifestValidator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// ValidationErrors returns detailed information about all validation errors
func (v *ManifestValidator) ValidationErrors(manifest interface{}) []string {
	return v.s.errorList(manifest)
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	s *schema
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	s, err := loadSchema("facts_schema.cue", "#FactTables")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{s: s}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(tables interface{}) error {
	return v.s.validate(tables)
}

// ValidationErrors returns one message per fact-table violation.
func (v *FactsValidator) ValidationErrors(tables interface{}) []string {
	return v.s.errorList(tables)
}
