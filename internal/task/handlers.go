package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/mjqueue/internal/domain"
)

// handlerFunc decodes dispatch parameters and calls the matching Submitter method.
type handlerFunc func(ctx context.Context, s Submitter, params json.RawMessage) (string, error)

// handlers maps every action to its typed submission call.
var handlers = map[domain.Action]handlerFunc{
	domain.ActionGenerate: typed(Submitter.Generate),
	domain.ActionUpscale:  typed(Submitter.Upscale),
	domain.ActionVary:     typed(Submitter.Vary),
	domain.ActionReset:    typed(Submitter.Reset),
	domain.ActionDescribe: typed(Submitter.Describe),
	domain.ActionBlend:    typed(Submitter.Blend),
}

func typed[P any](call func(Submitter, context.Context, P) (string, error)) handlerFunc {
	return func(ctx context.Context, s Submitter, raw json.RawMessage) (string, error) {
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return call(s, ctx, p)
	}
}

// submit runs the handler registered for d.Action.
func submit(ctx context.Context, s Submitter, d Dispatch) (string, error) {
	h, ok := handlers[d.Action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, d.Action)
	}
	return h(ctx, s, d.Params)
}
