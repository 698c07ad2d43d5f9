package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
)

// ExecuteQuery executes a GraphQL query against a schema
func ExecuteQuery(query string, schema graphql.Schema) *graphql.Result {
	return Execute(context.Background(), schema, GraphQLRequest{Query: query})
}

// ExecuteQueryWithVariables executes a GraphQL query with variables
func ExecuteQueryWithVariables(query string, schema graphql.Schema, variables map[string]any) *graphql.Result {
	return Execute(context.Background(), schema, GraphQLRequest{Query: query, Variables: variables})
}

// Execute runs req against schema.
func Execute(ctx context.Context, schema graphql.Schema, req GraphQLRequest) *graphql.Result {
	params := graphql.Params{
		Schema:        schema,
		RequestString: req.Query,
		OperationName: req.OperationName,
		Context:       ctx,
	}
	if len(req.Variables) > 0 {
		params.VariableValues = req.Variables
	}
	return graphql.Do(params)
}
