// Package httptransport is a thin, pluggable collaborator for the
// JSON-over-HTTP variant noted in spec §6: it does not participate in the
// Bolt state machine, carries no routing table, and does not accept
// bookmarks. It exists only so a caller can run one or more Cypher
// statements against the HTTP transactional endpoint in a single round
// trip (batching), the one capability the Bolt driver above does not
// offer.
//
// Grounded on other_examples/oracle-nosql-go-sdk__client.go's
// Client/RequestExecutor/handleResponse split: a Client holds a pluggable
// RequestExecutor so tests can substitute a fake one instead of a live
// net/http.Client. Responses are decoded by a separate, fixed function
// (decodeResponse), independent of the request construction; the decoder
// itself is not pluggable.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-graphdb/neobolt/neoerr"
)

// Statement is one Cypher statement plus parameters to run within a single
// HTTP transactional request.
type Statement struct {
	Statement  string                 `json:"statement"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Result is one statement's columns and rows, decoded from the server's
// JSON response.
type Result struct {
	Columns []string        `json:"columns"`
	Data    []ResultRow     `json:"data"`
	Errors  []ServerMessage `json:"errors,omitempty"`
}

// ResultRow is a single row's "row" projection of a transactional
// response. Graph/meta projections are intentionally not modeled: the
// hard core of this driver is Bolt, and the HTTP surface here stays
// minimal by design (spec §1 lists the HTTP driver as noted, not built out).
type ResultRow struct {
	Row []interface{} `json:"row"`
}

// ServerMessage mirrors the HTTP endpoint's {code, message} error shape,
// classified through the same neoerr taxonomy Bolt errors use.
type ServerMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the outer JSON envelope of a transactional HTTP request.
type Response struct {
	Results []Result        `json:"results"`
	Errors  []ServerMessage `json:"errors"`
	Commit  string          `json:"commit,omitempty"`
}

// RequestExecutor sends a built *http.Request and returns the raw
// *http.Response. Tests substitute a fake implementation in place of a
// live client.
type RequestExecutor interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport is the uniform surface every HTTP collaborator implementation
// satisfies: run a batch of statements against a transactional endpoint
// and decode the response.
type Transport interface {
	RunBatch(ctx context.Context, endpoint string, statements []Statement) (*Response, error)
}

// Client is the net/http-backed Transport implementation.
type Client struct {
	Executor      RequestExecutor
	UserAgent     string
	BasicUser     string
	BasicPassword string
}

// NewClient builds a Client backed by a real net/http.Client with the
// given timeout.
func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		Executor:  &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// RunBatch POSTs statements to endpoint's transactional commit URL and
// decodes the JSON response, returning a classified neoerr.Error for any
// server-reported error (spec §7's uniform error propagation applies here
// too, even though HTTP is outside the hard core).
func (c *Client) RunBatch(ctx context.Context, endpoint string, statements []Statement) (*Response, error) {
	body, err := json.Marshal(struct {
		Statements []Statement `json:"statements"`
	}{Statements: statements})
	if err != nil {
		return nil, neoerr.Wrap(err, "httptransport: encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, neoerr.Wrap(err, "httptransport: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.BasicUser != "" {
		req.SetBasicAuth(c.BasicUser, c.BasicPassword)
	}

	httpResp, err := c.Executor.Do(req)
	if err != nil {
		return nil, neoerr.Wrap(err, "httptransport: send request")
	}
	defer httpResp.Body.Close()

	return decodeResponse(httpResp)
}

func decodeResponse(httpResp *http.Response) (*Response, error) {
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, neoerr.Wrap(err, "httptransport: read response body")
	}

	if httpResp.StatusCode >= 400 {
		return nil, neoerr.Classify(neoerr.KindServer, "httptransport: server returned HTTP %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, neoerr.Wrap(err, "httptransport: decode response body")
	}

	for _, e := range resp.Errors {
		return &resp, neoerr.ServerError(e.Code, e.Message)
	}

	return &resp, nil
}
