package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the Song-level invariants (BPM>0, LPB>=1, volume/pan
// within 0..1). Cross-module invariants (a module's audio inputs must
// reference only earlier modules) are a graph property checked by
// pkg/engine's graph builder, not here.
func (s *Song) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid song: %w", err)
	}
	for i, t := range s.Tracks {
		if err := validate.Struct(&t); err != nil {
			return fmt.Errorf("invalid track %d (%s): %w", i, t.Name, err)
		}
	}
	return nil
}
