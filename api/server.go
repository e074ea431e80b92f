package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"vote-ledger/blockchain"
	"vote-ledger/models"
	"vote-ledger/registry"
	"vote-ledger/service"
)

const maxBodySize = 10 << 20

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType, headerWalletAddress}

var (
	errNotAdmin          = errors.New("admin wallet required")
	errNoWallet          = errors.New("no wallet connected")
	errVoterRequired     = errors.New("voter and candidate are required")
	errInvalidBlockIndex = errors.New("invalid block index")
)

type Server struct {
	votingService *service.VotingService
	queue         *service.QueueProcessor
	adminAddress  string
	log           zerolog.Logger
}

type CastVoteRequest struct {
	Voter     string `json:"voter"`
	Candidate string `json:"candidate"`
}

type AddCandidateRequest struct {
	Name  string `json:"name"`
	Party string `json:"party"`
	Image string `json:"img"`
}

type ConnectWalletRequest struct {
	Address    string  `json:"address"`
	Balance    float64 `json:"balance"`
	BalanceWei string  `json:"balanceWei"`
	External   bool    `json:"external"`
}

type ResultsResponse struct {
	Results map[string]int `json:"results"`
	service.Tally
}

type VoterStatusResponse struct {
	Address string             `json:"address"`
	Voted   bool               `json:"voted"`
	Record  *models.VoteRecord `json:"record,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Blocks  int    `json:"blocks"`
	TipHash string `json:"tipHash"`
}

// NewServer wires the HTTP handlers. When queue is nil votes are mined on the
// request goroutine.
func NewServer(vs *service.VotingService, queue *service.QueueProcessor, adminAddress string, log zerolog.Logger) *Server {
	return &Server{
		votingService: vs,
		queue:         queue,
		adminAddress:  adminAddress,
		log:           log,
	}
}

// Handler returns the router with logging, CORS and panic recovery applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	s.Register(r.PathPrefix("/api").Subrouter())

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedHeaders(allowedCORSHeaders),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.log}), handlers.PrintRecoveryStack(true))(h)
	h = handlers.CombinedLoggingHandler(s.log.With().Str("component", "access").Logger(), h)
	return http.MaxBytesHandler(h, maxBodySize)
}

func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/vote", s.handleCastVote).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/results", s.handleGetResults).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/voters/{address}", s.handleGetVoter).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/verify", s.handleVerify).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/chain", s.handleGetChain).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/chain/import", s.requireAdmin(s.handleImportChain)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/chain/{index}", s.handleGetBlock).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/candidates", s.handleGetCandidates).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/candidates", s.requireAdmin(s.handleAddCandidate)).Methods(http.MethodPost)
	r.HandleFunc("/wallet", s.handleGetWallet).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/wallet", s.handleDisconnectWallet).Methods(http.MethodDelete)
	r.HandleFunc("/wallet/connect", s.handleConnectWallet).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/reset", s.requireAdmin(s.handleReset)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/metrics", s.handleGetMetrics).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
}

// NewHTTPServer returns a server for handler. The write timeout leaves room
// for mining a block at the nonce cap.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		Handler:           handler,
	}
}

// requireAdmin passes only when both the X-Wallet-Address header and the
// connected wallet are the admin address.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, connected := s.votingService.Wallets().Current()
		if !connected ||
			!registry.IsAdmin(wallet.Address, s.adminAddress) ||
			!registry.IsAdmin(r.Header.Get(headerWalletAddress), s.adminAddress) {
			writeError(w, errNotAdmin, http.StatusForbidden, s.log)
			return
		}
		next(w, r)
	}
}

// statusFor maps vote errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrUnknownCandidate),
		errors.Is(err, service.ErrCandidateNameRequired),
		errors.Is(err, service.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrQueueStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, blockchain.ErrBlockNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest, s.log)
		return
	}
	if req.Voter == "" || req.Candidate == "" {
		writeError(w, errVoterRequired, http.StatusBadRequest, s.log)
		return
	}

	block, err := s.castVote(req.Voter, req.Candidate)
	if err != nil {
		writeError(w, err, statusFor(err), s.log)
		return
	}
	writeJSON(w, block, http.StatusOK, s.log)
}

func (s *Server) castVote(voter, candidate string) (models.Block, error) {
	if s.queue == nil {
		return s.votingService.CastVote(voter, candidate)
	}
	res := <-s.queue.QueueVote(voter, candidate)
	if !res.Success {
		return models.Block{}, res.Err
	}
	return *res.Block, nil
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ResultsResponse{
		Results: s.votingService.Results(),
		Tally:   s.votingService.Tally(),
	}, http.StatusOK, s.log)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	resp := VoterStatusResponse{Address: address}
	if rec, ok := s.votingService.VoteRecord(address); ok {
		resp.Voted = true
		resp.Record = &rec
	}
	writeJSON(w, resp, http.StatusOK, s.log)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.votingService.Verify(), http.StatusOK, s.log)
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	data, err := s.votingService.Export()
	if err != nil {
		writeError(w, err, http.StatusInternalServerError, s.log)
		return
	}
	w.Header().Set(headerContentType, applicationJSON)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", blockchain.ExportFileName))
	if _, err := w.Write(data); err != nil {
		s.log.Warn().Err(err).Msg("failed to write chain")
	}
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, errInvalidBlockIndex, http.StatusBadRequest, s.log)
		return
	}
	block, err := s.votingService.Block(index)
	if err != nil {
		writeError(w, err, statusFor(err), s.log)
		return
	}
	writeJSON(w, block, http.StatusOK, s.log)
}

func (s *Server) handleImportChain(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, fmt.Errorf("failed to read body: %w", err), http.StatusBadRequest, s.log)
		return
	}
	res, err := s.votingService.Import(data)
	if err != nil {
		writeError(w, err, http.StatusBadRequest, s.log)
		return
	}
	writeJSON(w, res, http.StatusOK, s.log)
}

func (s *Server) handleGetCandidates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.votingService.Candidates(), http.StatusOK, s.log)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	var req AddCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest, s.log)
		return
	}
	c, err := s.votingService.AddCandidate(req.Name, req.Party, req.Image)
	if err != nil {
		writeError(w, err, statusFor(err), s.log)
		return
	}
	writeJSON(w, c, http.StatusCreated, s.log)
}

func (s *Server) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req ConnectWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest, s.log)
		return
	}

	var (
		wallet models.Wallet
		err    error
	)
	if req.External {
		wallet, err = s.votingService.Wallets().ConnectExternal(req.Address, req.BalanceWei)
	} else {
		wallet, err = s.votingService.Wallets().Connect(req.Address, req.Balance)
	}
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadRequest
		}
		writeError(w, err, code, s.log)
		return
	}
	writeJSON(w, wallet, http.StatusOK, s.log)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, ok := s.votingService.Wallets().Current()
	if !ok {
		writeError(w, errNoWallet, http.StatusNotFound, s.log)
		return
	}
	writeJSON(w, wallet, http.StatusOK, s.log)
}

func (s *Server) handleDisconnectWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.votingService.Wallets().Disconnect(); err != nil {
		writeError(w, err, http.StatusInternalServerError, s.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.votingService.Reset(); err != nil {
		writeError(w, err, http.StatusInternalServerError, s.log)
		return
	}
	writeJSON(w, map[string]string{"status": "reset"}, http.StatusOK, s.log)
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.votingService.Metrics().GetMetrics(), http.StatusOK, s.log)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	blocks := s.votingService.Blocks()
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Blocks:  len(blocks),
		TipHash: blocks[len(blocks)-1].Hash,
	}, http.StatusOK, s.log)
}
