package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/clock"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/engine"
)

func newTestServer(t *testing.T) (*httptest.Server, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.New(memory.NewStore(), fake,
		engine.WithApplier(domain.KindMarriage, noopApplier{}),
	)
	srv := httptest.NewServer(NewHandler(eng))
	t.Cleanup(srv.Close)
	return srv, fake
}

type noopApplier struct{}

func (noopApplier) Apply(_ context.Context, _ *domain.Proposal) error { return nil }

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) resultResponse {
	t.Helper()
	defer resp.Body.Close()
	var out resultResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func propose(t *testing.T, srv *httptest.Server, initiator, responder string) resultResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/v1/proposals", proposeRequest{
		InitiatorID: initiator,
		ResponderID: responder,
		Kind:        string(domain.KindMarriage),
		Payload:     map[string]any{"cost": 100},
		TTLSeconds:  300,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeResult(t, resp)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProposeCreates(t *testing.T) {
	srv, _ := newTestServer(t)

	res := propose(t, srv, "alice", "bob")
	assert.Equal(t, domain.ResultCreated, res.Code)
	require.NotNil(t, res.Proposal)
	assert.Equal(t, domain.StatusPending, res.Proposal.Status)
	assert.NotEmpty(t, res.Proposal.ID)
}

func TestProposeConflictIs409(t *testing.T) {
	srv, _ := newTestServer(t)
	propose(t, srv, "alice", "bob")

	resp := postJSON(t, srv.URL+"/v1/proposals", proposeRequest{
		InitiatorID: "carol",
		ResponderID: "bob",
		Kind:        string(domain.KindMarriage),
		TTLSeconds:  300,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, domain.ResultAlreadyPending, res.Code)
	require.NotNil(t, res.Proposal)
	assert.Equal(t, "alice", res.Proposal.InitiatorID)
}

func TestProposeValidationIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	for name, req := range map[string]proposeRequest{
		"self":     {InitiatorID: "alice", ResponderID: "alice", Kind: "marriage", TTLSeconds: 300},
		"zero ttl": {InitiatorID: "alice", ResponderID: "bob", Kind: "marriage"},
		"bad kind": {InitiatorID: "alice", ResponderID: "bob", Kind: "friendship", TTLSeconds: 300},
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/proposals", req)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRespondAccept(t *testing.T) {
	srv, _ := newTestServer(t)
	propose(t, srv, "alice", "bob")

	resp := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob",
		InitiatorID: "alice",
		Decision:    "accept",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, domain.ResultAccepted, res.Code)
	assert.Equal(t, domain.StatusAccepted, res.Proposal.Status)
}

func TestRespondBadDecisionIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob",
		InitiatorID: "alice",
		Decision:    "maybe",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRespondMissingIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob",
		InitiatorID: "alice",
		Decision:    "reject",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, domain.ResultNotFound, res.Code)
}

func TestRespondAfterDeadlineIs410(t *testing.T) {
	srv, fake := newTestServer(t)
	created := propose(t, srv, "alice", "bob")

	fake.Advance(10 * time.Minute)

	resp := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob",
		InitiatorID: "alice",
		Decision:    "accept",
	})
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	// the stored proposal is now terminal
	got, err := http.Get(fmt.Sprintf("%s/v1/proposals/%s", srv.URL, created.Proposal.ID))
	require.NoError(t, err)
	defer got.Body.Close()
	var p domain.Proposal
	require.NoError(t, json.NewDecoder(got.Body).Decode(&p))
	assert.Equal(t, domain.StatusExpired, p.Status)
}

func TestDuplicateRespondIs409(t *testing.T) {
	srv, _ := newTestServer(t)
	propose(t, srv, "alice", "bob")

	first := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob", InitiatorID: "alice", Decision: "accept",
	})
	first.Body.Close()

	second := postJSON(t, srv.URL+"/v1/proposals/respond", respondRequest{
		ResponderID: "bob", InitiatorID: "alice", Decision: "accept",
	})
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	res := decodeResult(t, second)
	assert.Equal(t, domain.ResultAlreadyResolved, res.Code)
	assert.Equal(t, domain.StatusAccepted, res.Proposal.Status)
}

func TestCancel(t *testing.T) {
	srv, _ := newTestServer(t)
	propose(t, srv, "alice", "bob")

	resp := postJSON(t, srv.URL+"/v1/proposals/cancel", cancelRequest{
		InitiatorID: "alice",
		ResponderID: "bob",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, domain.ResultCancelled, res.Code)
}

func TestCancelByStrangerIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	propose(t, srv, "alice", "bob")

	resp := postJSON(t, srv.URL+"/v1/proposals/cancel", cancelRequest{
		InitiatorID: "carol",
		ResponderID: "bob",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPendingLookup(t *testing.T) {
	srv, _ := newTestServer(t)
	created := propose(t, srv, "alice", "bob")

	resp, err := http.Get(srv.URL + "/v1/responders/bob/pending")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p domain.Proposal
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, created.Proposal.ID, p.ID)

	missing, err := http.Get(srv.URL + "/v1/responders/nobody/pending")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestGetUnknownProposalIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/proposals/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
