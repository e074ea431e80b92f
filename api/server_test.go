package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vote-ledger/blockchain"
	"vote-ledger/config"
	"vote-ledger/models"
	"vote-ledger/registry"
	"vote-ledger/service"
	"vote-ledger/storage"
)

const voter = "0xabc0000000000000000000000000000000000001"

type testEnv struct {
	vs      *service.VotingService
	handler http.Handler
}

func newTestEnv(t *testing.T, withQueue bool, opts ...service.Option) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	roster, err := registry.NewCandidateRegistry(store)
	require.NoError(t, err)
	wallets, err := service.NewWalletSession(store, zerolog.Nop())
	require.NoError(t, err)
	vs, err := service.NewVotingService(store, roster, wallets, blockchain.DefaultMiner(), opts...)
	require.NoError(t, err)

	var queue *service.QueueProcessor
	if withQueue {
		queue = service.NewQueueProcessor(vs, 10, zerolog.Nop())
		queue.Start()
		t.Cleanup(queue.Stop)
	}
	return &testEnv{vs: vs, handler: NewServer(vs, queue, config.DefaultAdminAddress, zerolog.Nop()).Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(headerContentType, applicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// connectAdmin connects the admin wallet, replacing any connected one.
func connectAdmin(t *testing.T, e *testEnv) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: config.DefaultAdminAddress})
	require.Equal(t, http.StatusOK, rec.Code)
}

func asAdmin() []string {
	return []string{headerWalletAddress, strings.ToLower(config.DefaultAdminAddress)}
}

func TestVoteFlow(t *testing.T) {
	for _, withQueue := range []bool{false, true} {
		e := newTestEnv(t, withQueue)

		rec := e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "c1"})
		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		rec = e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, Balance: 1})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "c1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		block := decode[models.Block](t, rec)
		require.EqualValues(t, 1, block.Index)
		require.Equal(t, "c1", block.CandidateID())

		rec = e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "c2"})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, service.ErrAlreadyVoted.Error(), decode[errorResponse](t, rec).Error)

		rec = e.do(t, http.MethodGet, "/api/results", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		results := decode[ResultsResponse](t, rec)
		require.Equal(t, map[string]int{"c1": 1}, results.Results)
		require.Equal(t, 1, results.TotalVotes)
		require.Equal(t, 100, results.Candidates[0].Percent)

		rec = e.do(t, http.MethodGet, "/api/voters/"+voter, nil)
		status := decode[VoterStatusResponse](t, rec)
		require.True(t, status.Voted)
		require.Equal(t, "c1", status.Record.CandidateID)

		rec = e.do(t, http.MethodGet, "/api/voters/0xnobody", nil)
		require.False(t, decode[VoterStatusResponse](t, rec).Voted)

		rec = e.do(t, http.MethodGet, "/api/verify", nil)
		require.Equal(t, blockchain.Result{OK: true}, decode[blockchain.Result](t, rec))
	}
}

func TestCastVote_BadRequests(t *testing.T) {
	e := newTestEnv(t, false, service.WithStrictCandidates(true))

	rec := e.do(t, http.MethodPost, "/api/vote", []byte("{"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, Balance: 1})
	rec = e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode[errorResponse](t, rec).Error, "unknown candidate")
}

func TestChainEndpoints(t *testing.T) {
	e := newTestEnv(t, false)
	e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, Balance: 1})
	e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "c2"})

	rec := e.do(t, http.MethodGet, "/api/chain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blocks, err := blockchain.Import(rec.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, e.vs.Blocks(), blocks)

	rec = e.do(t, http.MethodGet, "/api/chain/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, blocks[1], decode[models.Block](t, rec))

	rec = e.do(t, http.MethodGet, "/api/chain/9", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/chain/x", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// import is admin only and reports tampering
	blocks[1].Voter = "0xEVIL"
	data, err := blockchain.Export(blocks)
	require.NoError(t, err)

	rec = e.do(t, http.MethodPost, "/api/chain/import", data)
	require.Equal(t, http.StatusForbidden, rec.Code)
	connectAdmin(t, e)

	rec = e.do(t, http.MethodPost, "/api/chain/import", data, asAdmin()...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, blockchain.Result{OK: false, Index: 1, Reason: blockchain.ReasonHashMismatch}, decode[blockchain.Result](t, rec))
	require.True(t, e.vs.HasVoted("0xEVIL"))

	rec = e.do(t, http.MethodPost, "/api/chain/import", []byte(`{"index":0}`), asAdmin()...)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidateEndpoints(t *testing.T) {
	e := newTestEnv(t, false)

	rec := e.do(t, http.MethodGet, "/api/candidates", nil)
	require.Equal(t, registry.DefaultCandidates(), decode[[]models.Candidate](t, rec))

	req := AddCandidateRequest{Name: "Ada", Image: "https://example.com/ada.png"}
	rec = e.do(t, http.MethodPost, "/api/candidates", req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	connectAdmin(t, e)

	rec = e.do(t, http.MethodPost, "/api/candidates", req, asAdmin()...)
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decode[models.Candidate](t, rec)
	require.Equal(t, "Independent", c.Party)
	require.Equal(t, req.Image, c.Image)

	rec = e.do(t, http.MethodPost, "/api/candidates", AddCandidateRequest{}, asAdmin()...)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireAdmin_HeaderAndConnectedWallet(t *testing.T) {
	e := newTestEnv(t, false)
	req := AddCandidateRequest{Name: "Ada"}

	// header alone, nothing connected
	rec := e.do(t, http.MethodPost, "/api/candidates", req, asAdmin()...)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// header alone, a voter wallet connected
	e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, Balance: 1})
	rec = e.do(t, http.MethodPost, "/api/candidates", req, asAdmin()...)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// admin connected but no header
	connectAdmin(t, e)
	rec = e.do(t, http.MethodPost, "/api/candidates", req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/candidates", req, asAdmin()...)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, e.vs.Candidates(), 4)
}

func TestWalletEndpoints(t *testing.T) {
	e := newTestEnv(t, false)

	rec := e.do(t, http.MethodGet, "/api/wallet", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, BalanceWei: "0xde0b6b3a7640000", External: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.Wallet{Address: voter, Balance: 1, IsMetaMask: true}, decode[models.Wallet](t, rec))

	rec = e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: "nothex", External: true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/wallet", nil)
	require.Equal(t, voter, decode[models.Wallet](t, rec).Address)

	rec = e.do(t, http.MethodDelete, "/api/wallet", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/wallet", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetAndHealth(t *testing.T) {
	e := newTestEnv(t, false)
	e.do(t, http.MethodPost, "/api/wallet/connect", ConnectWalletRequest{Address: voter, Balance: 1})
	e.do(t, http.MethodPost, "/api/vote", CastVoteRequest{Voter: voter, Candidate: "c3"})

	rec := e.do(t, http.MethodGet, "/api/health", nil)
	health := decode[HealthResponse](t, rec)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, 2, health.Blocks)
	require.Equal(t, e.vs.TipHash(), health.TipHash)

	rec = e.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, 1, decode[service.MetricsResponse](t, rec).Voting.Count)

	rec = e.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	connectAdmin(t, e)
	rec = e.do(t, http.MethodPost, "/api/reset", nil, asAdmin()...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, 1, decode[HealthResponse](t, rec).Blocks)
	require.False(t, e.vs.HasVoted(voter))
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusPaymentRequired, statusFor(service.ErrWalletNotConnected))
	require.Equal(t, http.StatusServiceUnavailable, statusFor(service.ErrQueueFull))
	require.Equal(t, http.StatusNotFound, statusFor(blockchain.ErrBlockNotFound))
	require.Equal(t, http.StatusInternalServerError, statusFor(nil))
}
