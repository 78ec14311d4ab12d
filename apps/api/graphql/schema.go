// Package gqlapi serves the GraphQL API: the schema, its resolvers and the
// translation of domain errors into GraphQL errors.
package gqlapi

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
)

//go:embed schema.graphql
var schemaString string

type (
	// Resolver is the root resolver of both queries and mutations.
	Resolver struct {
		svc    *shared.Services
		logger core.Logger
	}

	// Params is the body of a GraphQL request.
	Params struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	API struct {
		schema         *graphql.Schema
		svc            *shared.Services
		logger         core.Logger
		signalShutdown func()
	}
)

// New parses the schema on the root resolver. signalShutdown is called when a
// resolver fails with a shutdown error.
func New(svc *shared.Services, logger core.Logger, signalShutdown func()) (*API, error) {
	schema, err := graphql.ParseSchema(
		schemaString,
		&Resolver{svc: svc, logger: logger},
		graphql.MaxDepth(12),
	)
	if err != nil {
		return nil, err
	}
	return &API{schema: schema, svc: svc, logger: logger, signalShutdown: signalShutdown}, nil
}

// Exec runs the request and presents the resolver errors.
func (api *API) Exec(ctx context.Context, params Params) *graphql.Response {
	resp := api.schema.Exec(ctx, params.Query, params.OperationName, params.Variables)
	api.presentErrors(ctx, resp)
	return resp
}

// Data is a shortcut decoding the data of a successful response into v (used by tests).
func Data(resp *graphql.Response, v interface{}) error {
	return json.Unmarshal(resp.Data, v)
}
