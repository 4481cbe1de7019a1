package provider

import (
	"context"
	"errors"

	"github.com/hupe1980/agenthost/core"
	"github.com/hupe1980/agenthost/internal/util"
)

// Func is the implementation signature wrapped by FunctionProvider.
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionProvider adapts a plain Go function into a Provider.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter schema
//   - Validates model supplied arguments against that schema before execution
//   - Normalizes errors into the core taxonomy: validation failures become
//     ErrInvalidArguments; errors already carrying a kind pass through
//     unchanged; everything else is wrapped as ErrProviderUnavailable so the
//     runtime can decide whether the conversation continues
//
// A FunctionProvider has no internal mutable state after construction and is
// safe for concurrent use.
type FunctionProvider struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

// NewFunctionProvider constructs a FunctionProvider from an explicit schema
// and function.
//
// Example:
//
//	metrics := provider.NewFunctionProvider(
//	  "get_price_metrics",
//	  "Look up valuation metrics for a ticker symbol",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "ticker": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"ticker"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return lookup(ctx, args["ticker"].(string))
//	  },
//	)
func NewFunctionProvider(name, description string, parameters map[string]any, fn Func) *FunctionProvider {
	return &FunctionProvider{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionProviderFromStruct derives the parameter schema from a struct
// via reflection, equivalent to passing util.CreateSchema(structType).
func NewFunctionProviderFromStruct(name, description string, structType any, fn Func) *FunctionProvider {
	return NewFunctionProvider(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique provider name used in tool declarations and routing.
func (p *FunctionProvider) Name() string { return p.name }

// Description returns the natural language description exposed to models.
func (p *FunctionProvider) Description() string { return p.description }

// Parameters returns the JSON schema describing expected arguments.
func (p *FunctionProvider) Parameters() map[string]any { return p.parameters }

// Invoke validates args against the declared schema then calls the wrapped
// function.
func (p *FunctionProvider) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, p.parameters); err != nil {
		return nil, core.WrapError(core.ErrInvalidArguments, err, "parameter validation failed for "+p.name)
	}

	result, err := p.fn(ctx, args)
	if err != nil {
		var typed *core.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.WrapError(core.ErrProviderUnavailable, err, p.name+" execution failed")
	}

	return result, nil
}
