package httptransport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-graphdb/neobolt/neoerr"
)

type fakeExecutor struct {
	status int
	body   string
	gotReq *http.Request
	err    error
}

func (f *fakeExecutor) Do(req *http.Request) (*http.Response, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
	}, nil
}

func TestRunBatchDecodesSuccessfulResponse(t *testing.T) {
	exec := &fakeExecutor{status: 200, body: `{
		"results": [{"columns": ["n"], "data": [{"row": [1]}]}],
		"errors": []
	}`}
	c := &Client{Executor: exec, UserAgent: "neobolt-test/1.0"}

	resp, err := c.RunBatch(context.Background(), "http://localhost:7474/db/neo4j/tx/commit",
		[]Statement{{Statement: "RETURN 1 AS n"}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"n"}, resp.Results[0].Columns)
	assert.Equal(t, "neobolt-test/1.0", exec.gotReq.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", exec.gotReq.Header.Get("Content-Type"))
}

func TestRunBatchClassifiesServerError(t *testing.T) {
	exec := &fakeExecutor{status: 200, body: `{
		"results": [],
		"errors": [{"code": "Neo.ClientError.Statement.SyntaxError", "message": "bad"}]
	}`}
	c := &Client{Executor: exec}

	_, err := c.RunBatch(context.Background(), "http://localhost:7474/db/neo4j/tx/commit", nil)
	require.Error(t, err)
	var ne *neoerr.Error
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, neoerr.KindServer, ne.Kind())
	assert.Equal(t, "Neo.ClientError.Statement.SyntaxError", ne.Code())
}

func TestRunBatchReturnsKindServerOnHTTPErrorStatus(t *testing.T) {
	exec := &fakeExecutor{status: 500, body: `internal error`}
	c := &Client{Executor: exec}

	_, err := c.RunBatch(context.Background(), "http://localhost:7474/db/neo4j/tx/commit", nil)
	require.Error(t, err)
	var ne *neoerr.Error
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, neoerr.KindServer, ne.Kind())
}

func TestRunBatchSetsBasicAuthWhenConfigured(t *testing.T) {
	exec := &fakeExecutor{status: 200, body: `{"results": [], "errors": []}`}
	c := &Client{Executor: exec, BasicUser: "neo4j", BasicPassword: "secret"}

	_, err := c.RunBatch(context.Background(), "http://localhost:7474/db/neo4j/tx/commit", nil)
	require.NoError(t, err)
	user, pass, ok := exec.gotReq.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "neo4j", user)
	assert.Equal(t, "secret", pass)
}
