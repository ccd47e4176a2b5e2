package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campchain/native/campaign"
	"campchain/native/token"
	"campchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Campaign module error codes, paired with the sentinel error text in the
// response message.
const (
	codeCampaignNotFound = -32041
	codeCampaignAuth     = -32042
	codeCampaignInvalid  = -32043
	codeCampaignConflict = -32044
	codeCampaignTransfer = -32045
	codeTokenFailure     = -32051
)

type Server struct {
	dir      *campaign.Directory
	registry *campaign.Registry
	engine   *campaign.Engine
	token    *token.Ledger

	authToken string
	log       *slog.Logger
}

func NewServer(dir *campaign.Directory, registry *campaign.Registry, engine *campaign.Engine, tok *token.Ledger, authToken string) *Server {
	return &Server{
		dir:       dir,
		registry:  registry,
		engine:    engine,
		token:     tok,
		authToken: strings.TrimSpace(authToken),
		log:       slog.Default().With("component", "rpc"),
	}
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	mux := http.NewServeMux()
	mux.Handle("/", s)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// statusRecorder captures the HTTP status written by a handler so the request
// can be attributed in metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	method := "unknown"
	defer func() {
		observability.RPCMetrics().Observe(method, rec.status, time.Since(start))
	}()

	reader := http.MaxBytesReader(rec, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	rec.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(rec, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(rec, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(rec, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(rec, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(rec, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	method = req.Method

	switch req.Method {
	case "campaign_create":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignCreate(rec, r, req)
	case "campaign_setManager":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignSetManager(rec, r, req)
	case "campaign_get":
		s.handleCampaignGet(rec, r, req)
	case "campaign_list":
		s.handleCampaignList(rec, r, req)
	case "campaign_listByOwner":
		s.handleCampaignListByOwner(rec, r, req)
	case "campaign_count":
		s.handleCampaignCount(rec, r, req)
	case "campaign_fund":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignFund(rec, r, req)
	case "campaign_registerScore":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignRegisterScore(rec, r, req)
	case "campaign_registerScores":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignRegisterScores(rec, r, req)
	case "campaign_withdraw":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignWithdraw(rec, r, req)
	case "campaign_getScore":
		s.handleCampaignGetScore(rec, r, req)
	case "campaign_participants":
		s.handleCampaignParticipants(rec, r, req)
	case "campaign_updateName":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignUpdateName(rec, r, req)
	case "campaign_updateDates":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignUpdateDates(rec, r, req)
	case "campaign_updateRewardAmount":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignUpdateRewardAmount(rec, r, req)
	case "campaign_setTaxRecipient":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignSetTaxRecipient(rec, r, req)
	case "campaign_setTaxRate":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCampaignSetTaxRate(rec, r, req)
	case "token_balanceOf":
		s.handleTokenBalanceOf(rec, r, req)
	case "token_allowance":
		s.handleTokenAllowance(rec, r, req)
	case "token_approve":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleTokenApprove(rec, r, req)
	default:
		writeError(rec, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// writeModuleError translates module sentinel errors into JSON-RPC error codes
// and an appropriate HTTP status.
func writeModuleError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound):
		status, code = http.StatusNotFound, codeCampaignNotFound
	case errors.Is(err, campaign.ErrUnauthorized), errors.Is(err, campaign.ErrManagerNotSet):
		status, code = http.StatusForbidden, codeCampaignAuth
	case errors.Is(err, campaign.ErrZeroAddress),
		errors.Is(err, campaign.ErrInvalidAmount),
		errors.Is(err, campaign.ErrInvalidName),
		errors.Is(err, campaign.ErrEndNotInFuture),
		errors.Is(err, campaign.ErrInvalidDates),
		errors.Is(err, campaign.ErrTaxRateTooHigh),
		errors.Is(err, campaign.ErrLengthMismatch):
		status, code = http.StatusBadRequest, codeCampaignInvalid
	case errors.Is(err, campaign.ErrAlreadyFunded),
		errors.Is(err, campaign.ErrNotFunded),
		errors.Is(err, campaign.ErrAlreadyWithdrawn),
		errors.Is(err, campaign.ErrNoScore),
		errors.Is(err, campaign.ErrRewardLocked),
		errors.Is(err, campaign.ErrReentrantCall):
		status, code = http.StatusConflict, codeCampaignConflict
	case errors.Is(err, campaign.ErrTransferFailed):
		status, code = http.StatusConflict, codeCampaignTransfer
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrZeroAddress):
		status, code = http.StatusBadRequest, codeTokenFailure
	}
	writeError(w, status, id, code, err.Error(), nil)
}
