package graphql_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/covlens/internal/adapter/driven/graphql"
	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/requestid"
)

var op = contract.Operation{
	Name:      "CommitPageData",
	Query:     "query CommitPageData { owner { isCurrentUserPartOfOrg } }",
	Variables: map[string]any{"owner": "codecov", "repo": "gazebo", "commitId": "abc"},
	Provider:  "gh",
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...graphql.Option) *graphql.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := graphql.NewClientWithHTTPClient(server.Client(), server.URL+"/", opts...)
	require.NoError(t, err)
	return client
}

func TestExecute_PostReturnsData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql/gh", r.URL.Path)
		assert.Equal(t, "bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get(requestid.Header))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CommitPageData", body["operationName"])
		assert.Equal(t, op.Query, body["query"])
		assert.Equal(t, "abc", body["variables"].(map[string]any)["commitId"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"owner":null}}`))
	}, graphql.WithToken("test-token"))

	ctx := requestid.With(context.Background(), "req-1")
	data, err := client.Execute(ctx, op)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":null}`, string(data))
}

func TestExecute_GetEncodesOperationInQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "CommitPageData", q.Get("operationName"))
		assert.Equal(t, op.Query, q.Get("query"))
		assert.JSONEq(t, `{"owner":"codecov","repo":"gazebo","commitId":"abc"}`, q.Get("variables"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(requestid.Header))

		_, _ = w.Write([]byte(`{"data":{"owner":{"isCurrentUserPartOfOrg":true}}}`))
	}, graphql.WithMethod("get"))

	data, err := client.Execute(context.Background(), op)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":{"isCurrentUserPartOfOrg":true}}`, string(data))
}

func TestExecute_Non2xxIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Execute(context.Background(), op)
	require.Error(t, err)
	assert.True(t, errors.Is(err, driven.ErrTransport))

	var te *graphql.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Equal(t, "CommitPageData", te.Operation)
}

func TestExecute_ErrorsWithoutDataIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Something went wrong"}]}`))
	})

	_, err := client.Execute(context.Background(), op)
	require.ErrorIs(t, err, driven.ErrTransport)
	assert.Contains(t, err.Error(), "Something went wrong")
}

func TestExecute_PartialDataIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"owner":null},"errors":[{"message":"partial"}]}`))
	})

	data, err := client.Execute(context.Background(), op)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":null}`, string(data))
}

func TestExecute_MalformedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := client.Execute(context.Background(), op)
	assert.ErrorIs(t, err, driven.ErrTransport)
}

func TestExecute_RequiresProvider(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	noProvider := op
	noProvider.Provider = ""
	_, err := client.Execute(context.Background(), noProvider)
	assert.Error(t, err)
}

func TestNewClient_ValidatesOptions(t *testing.T) {
	_, err := graphql.NewClientWithHTTPClient(http.DefaultClient, "not a url")
	assert.Error(t, err)

	_, err = graphql.NewClientWithHTTPClient(http.DefaultClient, "https://api.example.com", graphql.WithMethod("PUT"))
	assert.Error(t, err)
}
