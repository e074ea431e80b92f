package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vote-ledger/models"
)

// QueueProcessor mines queued votes on a single worker so request handlers
// only wait for their result.
type QueueProcessor struct {
	votingService *VotingService
	voteCh        chan *VoteRequest
	processingWg  sync.WaitGroup
	shutdownCh    chan struct{}
	stopped       bool
	mu            sync.RWMutex
	log           zerolog.Logger
}

// VoteRequest represents a queued vote casting request
type VoteRequest struct {
	ID        string
	Voter     string
	Candidate string
	ResultCh  chan<- *ProcessingResult
}

// ProcessingResult contains the result of an asynchronous operation
type ProcessingResult struct {
	RequestID    string        `json:"requestId"`
	Success      bool          `json:"success"`
	Block        *models.Block `json:"block,omitempty"`
	Err          error         `json:"-"`
	ErrorMessage string        `json:"error,omitempty"`
	Timestamp    int64         `json:"timestamp"`
}

func NewQueueProcessor(votingService *VotingService, queueSize int, log zerolog.Logger) *QueueProcessor {
	return &QueueProcessor{
		votingService: votingService,
		voteCh:        make(chan *VoteRequest, queueSize),
		shutdownCh:    make(chan struct{}),
		log:           log,
	}
}

// Start begins processing queued votes
func (qp *QueueProcessor) Start() {
	qp.processingWg.Add(1)
	go qp.voteWorker()
}

// Stop waits for the vote being mined, then fails everything still queued.
func (qp *QueueProcessor) Stop() {
	qp.mu.Lock()
	if qp.stopped {
		qp.mu.Unlock()
		return
	}
	qp.stopped = true
	close(qp.shutdownCh)
	qp.mu.Unlock()

	qp.processingWg.Wait()
	for {
		select {
		case req := <-qp.voteCh:
			req.ResultCh <- failed(req.ID, ErrQueueStopped)
			close(req.ResultCh)
		default:
			return
		}
	}
}

// QueueVote adds a vote to the queue. The returned channel receives exactly
// one result.
func (qp *QueueProcessor) QueueVote(voter, candidate string) <-chan *ProcessingResult {
	resultCh := make(chan *ProcessingResult, 1)
	req := &VoteRequest{
		ID:        uuid.NewString(),
		Voter:     voter,
		Candidate: candidate,
		ResultCh:  resultCh,
	}

	qp.mu.RLock()
	defer qp.mu.RUnlock()

	if qp.stopped {
		resultCh <- failed(req.ID, ErrQueueStopped)
		close(resultCh)
		return resultCh
	}
	select {
	case qp.voteCh <- req:
		return resultCh
	default:
		qp.log.Warn().Str("request", req.ID).Str("voter", voter).Msg("vote queue is full, request dropped")
		resultCh <- failed(req.ID, ErrQueueFull)
		close(resultCh)
		return resultCh
	}
}

func failed(id string, err error) *ProcessingResult {
	return &ProcessingResult{
		RequestID:    id,
		Err:          err,
		ErrorMessage: err.Error(),
		Timestamp:    time.Now().Unix(),
	}
}

func (qp *QueueProcessor) voteWorker() {
	defer qp.processingWg.Done()

	for {
		select {
		case <-qp.shutdownCh:
			return
		case req := <-qp.voteCh:
			block, err := qp.votingService.CastVote(req.Voter, req.Candidate)
			if err != nil {
				req.ResultCh <- failed(req.ID, err)
			} else {
				req.ResultCh <- &ProcessingResult{
					RequestID: req.ID,
					Success:   true,
					Block:     &block,
					Timestamp: time.Now().Unix(),
				}
			}
			close(req.ResultCh)
		}
	}
}

// Pending reports how many votes wait for the worker.
func (qp *QueueProcessor) Pending() int {
	return len(qp.voteCh)
}
