package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	headerContentType   = "Content-Type"
	headerWalletAddress = "X-Wallet-Address"
	applicationJSON     = "application/json"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON replies to the request with the given response and HTTP code.
func writeJSON(w http.ResponseWriter, response any, statusCode int, log zerolog.Logger) {
	w.Header().Set(headerContentType, applicationJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

// writeError replies to the request with the error message and HTTP code.
// The caller should ensure no further writes are done to w.
func writeError(w http.ResponseWriter, e error, code int, log zerolog.Logger) {
	writeJSON(w, errorResponse{Error: e.Error()}, code, log)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// recoveryLogger adapts zerolog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log zerolog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.log.Error().Msg(fmt.Sprint(v...))
}
