package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// ValidateSchema checks cfg against the embedded CUE schema.
func ValidateSchema(cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("cannot compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	normalized := *cfg
	if normalized.Run.BlueprintParams == nil {
		normalized.Run.BlueprintParams = []Param{}
	}
	value := ctx.Encode(normalized)
	if err := value.Err(); err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}

	final := def.Unify(value)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
