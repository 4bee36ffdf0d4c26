package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Execute runs a query after checking its depth. A maxDepth of zero disables
// the check.
func Execute(ctx context.Context, schema graphql.Schema, query string, variables map[string]any, maxDepth int) *graphql.Result {
	if maxDepth > 0 {
		if err := ValidateQueryDepth(query, maxDepth); err != nil {
			return &graphql.Result{
				Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)},
			}
		}
	}

	params := graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       ctx,
	}
	if len(variables) > 0 {
		params.VariableValues = variables
	}
	return graphql.Do(params)
}
