package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/stockists/internal/config"
	"github.com/FranksOps/stockists/internal/fingerprint"
	"github.com/FranksOps/stockists/internal/metrics"
	"github.com/FranksOps/stockists/pkg/httpclient"
)

const userAgent = "stockists/1.0"

// ValueSERP queries the ValueSERP Google search API.
type ValueSERP struct {
	endpoint     string
	apiKey       string
	googleDomain string
	country      string
	language     string

	client *httpclient.Client
	logger *slog.Logger
}

var _ Provider = (*ValueSERP)(nil)

// New builds a ValueSERP provider with a transport chosen by the config's
// TLS profile and proxy settings.
func New(cfg *config.Config, logger *slog.Logger) (*ValueSERP, error) {
	profile, err := fingerprint.ParseProfile(cfg.TLSProfile)
	if err != nil {
		return nil, err
	}
	transport, err := fingerprint.Transport(profile, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		UserAgent:    userAgent,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return NewWithClient(cfg, client, logger), nil
}

// NewWithClient builds a ValueSERP provider on top of an existing client.
func NewWithClient(cfg *config.Config, client *httpclient.Client, logger *slog.Logger) *ValueSERP {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValueSERP{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		googleDomain: cfg.GoogleDomain,
		country:      cfg.Country,
		language:     cfg.Language,
		client:       client,
		logger:       logger,
	}
}

// Search issues one GET for query. Any transport fault, non-2xx status or
// undecodable body is returned as a *RequestFailure alongside an empty
// Response.
func (v *ValueSERP) Search(ctx context.Context, query string) (Response, error) {
	params := url.Values{}
	params.Set("api_key", v.apiKey)
	params.Set("q", query)
	params.Set("google_domain", v.googleDomain)
	params.Set("gl", v.country)
	params.Set("hl", v.language)

	start := time.Now()
	body, err := v.client.Get(ctx, v.endpoint, params)
	if err != nil {
		rf := newRequestFailure(query, err)
		metrics.RecordSearch(rf.Kind, time.Since(start))
		v.logger.Debug("search request failed", "query", query, "kind", rf.Kind, "status", rf.StatusCode)
		return Response{}, rf
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		rf := &RequestFailure{Query: query, Kind: KindDecode, Err: fmt.Errorf("decode response: %w", err)}
		metrics.RecordSearch(rf.Kind, time.Since(start))
		return Response{}, rf
	}

	metrics.RecordSearch("ok", time.Since(start))
	v.logger.Debug("search request ok", "query", query, "bytes", len(body), "duration", time.Since(start))
	return resp, nil
}
