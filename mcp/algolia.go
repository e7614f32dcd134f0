package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Default launch settings of the Algolia MCP server.
const (
	DefaultNodePath = "./mcp-node"
	DefaultCommand  = "node"
)

// DefaultArgs are the node arguments that run the server from source.
var DefaultArgs = []string{"--experimental-strip-types", "--no-warnings=ExperimentalWarning", "src/app.ts"}

// AlgoliaServer returns the launch description of the Algolia MCP server
// checked out at nodePath.
func AlgoliaServer(nodePath, appID, apiKey string) Server {
	if nodePath == "" {
		nodePath = DefaultNodePath
	}
	return Server{
		Command: DefaultCommand,
		Args:    append([]string(nil), DefaultArgs...),
		Dir:     nodePath,
		Env: map[string]string{
			"ALGOLIA_APP_ID":  appID,
			"ALGOLIA_API_KEY": apiKey,
		},
	}
}

// Operation names of the Algolia MCP server.
const (
	OpGetUserInfo         = "getUserInfo"
	OpGetApplications     = "getApplications"
	OpListIndices         = "listIndices"
	OpGetSettings         = "getSettings"
	OpSearchSingleIndex   = "searchSingleIndex"
	OpSaveObject          = "saveObject"
	OpPartialUpdateObject = "partialUpdateObject"
	OpBatch               = "batch"
	OpGetTopSearches      = "getTopSearches"
	OpGetNoResultsRate    = "getNoResultsRate"
)

// AnalyticsRegion is the analytics region sent with top-search queries.
const AnalyticsRegion = "europe-germany"

// Algolia is a typed facade over the Algolia MCP server's operations.
type Algolia struct {
	client *Client
	appID  string
}

// NewAlgolia wraps c. appID is sent as applicationId where an operation
// requires one.
func NewAlgolia(c *Client, appID string) *Algolia {
	return &Algolia{client: c, appID: appID}
}

func (a *Algolia) call(ctx context.Context, op string, args map[string]any) (*Result, error) {
	res, err := a.client.CallTool(ctx, op, args)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return res, fmt.Errorf("%s: %s", op, res.Text())
	}
	return res, nil
}

func (a *Algolia) withApp(args map[string]any) map[string]any {
	args["applicationId"] = a.appID
	return args
}

// GetUserInfo returns the account information of the API key's owner.
func (a *Algolia) GetUserInfo(ctx context.Context) (*Result, error) {
	return a.call(ctx, OpGetUserInfo, map[string]any{})
}

// GetApplications returns the applications visible to the API key.
func (a *Algolia) GetApplications(ctx context.Context) (*Result, error) {
	return a.call(ctx, OpGetApplications, map[string]any{})
}

// Applications calls getApplications and parses the answer.
func (a *Algolia) Applications(ctx context.Context) ([]Application, error) {
	res, err := a.GetApplications(ctx)
	if err != nil {
		return nil, err
	}
	return ParseApplications(res.Parts), nil
}

// ListIndices lists the indices of the application.
func (a *Algolia) ListIndices(ctx context.Context) (*Result, error) {
	return a.call(ctx, OpListIndices, a.withApp(map[string]any{}))
}

// GetSettings returns the settings of an index.
func (a *Algolia) GetSettings(ctx context.Context, indexName string) (*Result, error) {
	return a.call(ctx, OpGetSettings, a.withApp(map[string]any{
		"indexName": indexName,
	}))
}

// SearchSingleIndex runs a query against one index.
func (a *Algolia) SearchSingleIndex(ctx context.Context, indexName, query string, hitsPerPage, page int) (*Result, error) {
	return a.call(ctx, OpSearchSingleIndex, a.withApp(map[string]any{
		"indexName": indexName,
		"requestBody": map[string]any{
			"query":       query,
			"hitsPerPage": hitsPerPage,
			"page":        page,
		},
	}))
}

// SaveObject adds or replaces one record.
func (a *Algolia) SaveObject(ctx context.Context, indexName string, record map[string]any) (*Result, error) {
	return a.call(ctx, OpSaveObject, a.withApp(map[string]any{
		"indexName":   indexName,
		"requestBody": record,
	}))
}

// PartialUpdateObject updates some attributes of one record.
func (a *Algolia) PartialUpdateObject(ctx context.Context, indexName, objectID string, attributes map[string]any) (*Result, error) {
	return a.call(ctx, OpPartialUpdateObject, a.withApp(map[string]any{
		"indexName":     indexName,
		"objectID":      objectID,
		"partialObject": attributes,
	}))
}

// Batch sends a list of write requests to one index.
func (a *Algolia) Batch(ctx context.Context, indexName string, requests []map[string]any) (*Result, error) {
	return a.call(ctx, OpBatch, a.withApp(map[string]any{
		"index":    indexName,
		"requests": requests,
	}))
}

// GetTopSearches returns the most frequent searches between two dates
// (YYYY-MM-DD).
func (a *Algolia) GetTopSearches(ctx context.Context, indexName, startDate, endDate string) (*Result, error) {
	return a.call(ctx, OpGetTopSearches, a.withApp(map[string]any{
		"index":     indexName,
		"startDate": startDate,
		"endDate":   endDate,
		"region":    AnalyticsRegion,
	}))
}

// GetNoResultsRate returns the share of searches without results between
// two dates (YYYY-MM-DD).
func (a *Algolia) GetNoResultsRate(ctx context.Context, indexName, startDate, endDate string) (*Result, error) {
	return a.call(ctx, OpGetNoResultsRate, a.withApp(map[string]any{
		"index":     indexName,
		"startDate": startDate,
		"endDate":   endDate,
	}))
}

type applicationsPayload struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// Application is one entry of the getApplications answer.
type Application struct {
	Name string `json:"name"`
	// ID is empty when the answer could not be parsed.
	ID   string `json:"id"`
}

// ParseApplications turns getApplications text content into the list of
// applications, in answer order. An application without a name is listed
// as "App <id>". A part that is not the expected JSON document is listed
// verbatim, truncated to 50 characters, without an id.
func ParseApplications(parts []string) []Application {
	var apps []Application
	for _, part := range parts {
		var payload applicationsPayload
		if err := json.Unmarshal([]byte(part), &payload); err != nil {
			label := part
			if r := []rune(label); len(r) > 50 {
				label = string(r[:50]) + "..."
			}
			apps = append(apps, Application{Name: label})
			continue
		}
		for _, app := range payload.Data {
			if app.ID == "" {
				continue
			}
			name := app.Attributes.Name
			if name == "" {
				name = "App " + app.ID
			}
			apps = append(apps, Application{Name: name, ID: app.ID})
		}
	}
	return apps
}
