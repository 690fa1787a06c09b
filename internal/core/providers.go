package core

import "context"

// Generator is the content-generation collaborator. The core knows nothing
// about prompts or models; it only bounds the call with ctx.
type Generator interface {
	Generate(ctx context.Context, payload Payload) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, payload Payload) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, payload Payload) (string, error) {
	return f(ctx, payload)
}
