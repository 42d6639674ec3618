package serp

import (
	"context"
	"encoding/json"
)

// Response is the decoded JSON object returned for one query. A nil or
// empty Response means the query produced no results.
type Response map[string]json.RawMessage

// OrganicKey is the member of a Response holding the ranked organic results.
const OrganicKey = "organic_results"

// Provider abstracts the search API so the pipeline can run against a fake.
type Provider interface {
	Search(ctx context.Context, query string) (Response, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, query string) (Response, error)

func (f ProviderFunc) Search(ctx context.Context, query string) (Response, error) {
	return f(ctx, query)
}
