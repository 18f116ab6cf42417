package parser

import (
	"context"
	"encoding/json"
)

// Generator is the AI collaborator contract. The implementation owns its own
// retry policy; the parser only sees the final JSON answer or an error.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string) (json.RawMessage, error)
}
