// Package api exposes the contract over an HTTP JSON surface. State-changing
// endpoints name the calling account explicitly; the server performs no
// authentication and trusts the deployment boundary for that.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/contract"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/feed"
	"aw-token-ledger/internal/ledger"
	"aw-token-ledger/internal/storage"
)

// Server wires the contract and its stores to HTTP handlers.
type Server struct {
	contract  *contract.Contract
	positions storage.PositionStore
	events    storage.EventStore
	feed      *feed.Hub
	logger    *log.Logger
}

// NewServer creates a server. The feed hub is optional.
func NewServer(c *contract.Contract, positions storage.PositionStore, events storage.EventStore, hub *feed.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		contract:  c,
		positions: positions,
		events:    events,
		feed:      hub,
		logger:    logger,
	}
}

// Routes returns the handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/initialize", s.handleInitialize)
	mux.HandleFunc("GET /v1/state", s.handleState)

	mux.HandleFunc("POST /v1/mint", s.handleMint)
	mux.HandleFunc("POST /v1/transfer", s.handleTransfer)
	mux.HandleFunc("POST /v1/approve", s.handleApprove)
	mux.HandleFunc("GET /v1/balance", s.handleBalance)
	mux.HandleFunc("GET /v1/allowance", s.handleAllowance)

	mux.HandleFunc("POST /v1/pool", s.handleCreatePool)

	mux.HandleFunc("POST /v1/liquidity/add", s.handleAddLiquidity)
	mux.HandleFunc("POST /v1/liquidity/remove", s.handleRemoveLiquidity)
	mux.HandleFunc("GET /v1/positions", s.handlePositions)

	mux.HandleFunc("GET /v1/events", s.handleEvents)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if s.feed != nil {
		mux.Handle("GET /ws", s.feed)
	}

	return mux
}

type initializeRequest struct {
	Caller          string `json:"caller"`
	Owner           string `json:"owner"`
	SwapRouter      string `json:"swap_router"`
	Factory         string `json:"factory"`
	PositionManager string `json:"position_manager"`
	TaxWallet       string `json:"tax_wallet"`
	FeeTier         uint32 `json:"fee_tier"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !s.decode(w, r, &req) {
		return
	}

	params := contract.InitializeParams{FeeTier: amm.FeeTier(req.FeeTier)}
	fields := []struct {
		name   string
		value  string
		dst    *domain.Address
		wallet bool
	}{
		{"owner", req.Owner, &params.Owner, true},
		{"swap_router", req.SwapRouter, &params.SwapRouter, false},
		{"factory", req.Factory, &params.Factory, false},
		{"position_manager", req.PositionManager, &params.PositionManager, false},
		{"tax_wallet", req.TaxWallet, &params.TaxWallet, true},
	}
	for _, f := range fields {
		parse := parseAddress
		if f.wallet {
			parse = parseWallet
		}
		addr, err := parse(f.name, f.value)
		if err != nil {
			s.writeError(w, err)
			return
		}
		*f.dst = addr
	}

	if err := s.contract.Initialize(r.Context(), params); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"phase": s.contract.Phase().String()})
}

type stateResponse struct {
	Phase       string `json:"phase"`
	Owner       string `json:"owner,omitempty"`
	TaxWallet   string `json:"tax_wallet,omitempty"`
	FeeTier     uint32 `json:"fee_tier,omitempty"`
	Pool        string `json:"pool,omitempty"`
	MaxSupply   string `json:"max_supply"`
	TotalIssued string `json:"total_issued"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{
		Phase:       s.contract.Phase().String(),
		Owner:       s.contract.Owner().String(),
		TaxWallet:   s.contract.TaxWallet().String(),
		FeeTier:     uint32(s.contract.FeeTier()),
		MaxSupply:   s.contract.MaxSupply().Dec(),
		TotalIssued: s.contract.TotalIssued().Dec(),
	}
	if pool, ok := s.contract.PoolAddress(); ok {
		resp.Pool = pool.String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type mintRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := parseWallet("to", req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.contract.Mint(r.Context(), caller, to, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"total_issued": s.contract.TotalIssued().Dec(),
	})
}

type transferRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := parseWallet("to", req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.contract.Transfer(caller, to, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"balance": s.contract.BalanceOf(caller).Dec(),
	})
}

type approveRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	spender, err := parseWallet("spender", req.Spender)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.contract.Approve(caller, spender, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"allowance": s.contract.Allowance(caller, spender).Dec(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := parseWallet("account", r.URL.Query().Get("account"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"account": account.String(),
		"balance": s.contract.BalanceOf(account).Dec(),
	})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := parseWallet("owner", r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	spender, err := parseWallet("spender", r.URL.Query().Get("spender"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"allowance": s.contract.Allowance(owner, spender).Dec(),
	})
}

type createPoolRequest struct {
	Caller       string `json:"caller"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	price, err := parseAmount("sqrt_price_x96", req.SqrtPriceX96)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pool, err := s.contract.CreatePool(r.Context(), caller, price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"pool": pool.String()})
}

type addLiquidityRequest struct {
	Caller      string `json:"caller"`
	AmountToken string `json:"amount_token"`
	AmountBase  string `json:"amount_base"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
}

type positionResponse struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Liquidity   string `json:"liquidity"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	AmountToken string `json:"amount_token"`
	AmountBase  string `json:"amount_base"`
	CreatedAt   int64  `json:"created_at"`
}

func positionToResponse(p *domain.Position) positionResponse {
	return positionResponse{
		ID:          p.ID,
		Owner:       p.Owner.String(),
		Liquidity:   p.Liquidity.Dec(),
		TickLower:   p.TickLower,
		TickUpper:   p.TickUpper,
		AmountToken: p.AmountToken.Dec(),
		AmountBase:  p.AmountBase.Dec(),
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req addLiquidityRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amountToken, err := parseAmount("amount_token", req.AmountToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amountBase, err := parseAmount("amount_base", req.AmountBase)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.contract.AddLiquidity(r.Context(), caller, amountToken, req.TickLower, req.TickUpper, amountBase)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positionToResponse(p))
}

type removeLiquidityRequest struct {
	Caller     string `json:"caller"`
	PositionID uint64 `json:"position_id"`
	Liquidity  string `json:"liquidity"`
}

func (s *Server) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req removeLiquidityRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := parseWallet("caller", req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	liquidity, err := parseAmount("liquidity", req.Liquidity)
	if err != nil {
		s.writeError(w, err)
		return
	}

	amountToken, amountBase, err := s.contract.RemoveLiquidity(r.Context(), caller, req.PositionID, liquidity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"amount_token": amountToken.Dec(),
		"amount_base":  amountBase.Dec(),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []*domain.Position
		err       error
	)
	if ownerParam := r.URL.Query().Get("owner"); ownerParam != "" {
		owner, perr := parseWallet("owner", ownerParam)
		if perr != nil {
			s.writeError(w, perr)
			return
		}
		positions, err = s.positions.GetByOwner(r.Context(), owner)
	} else {
		positions, err = s.positions.GetAll(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]positionResponse, len(positions))
	for i, p := range positions {
		resp[i] = positionToResponse(p)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var (
		events []*domain.Event
		err    error
	)
	switch {
	case r.URL.Query().Get("kind") != "":
		events, err = s.events.GetByKind(r.Context(), domain.EventKind(r.URL.Query().Get("kind")))
	case r.URL.Query().Get("from_seq") != "":
		var from int64
		from, err = strconv.ParseInt(r.URL.Query().Get("from_seq"), 10, 64)
		if err != nil {
			s.writeError(w, badRequestf("invalid from_seq"))
			return
		}
		events, err = s.events.GetFromSeq(r.Context(), from)
	default:
		events, err = s.events.GetAll(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]feed.Message, len(events))
	for i, e := range events {
		resp[i] = feed.MessageFromEvent(e)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// errBadRequest marks client-side validation failures.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{errBadRequest}, args...)...)
}

func parseAddress(field, value string) (domain.Address, error) {
	if value == "" {
		return domain.ZeroAddress, badRequestf("%s is required", field)
	}
	addr, err := domain.ParseAddress(value)
	if err != nil {
		return domain.ZeroAddress, badRequestf("%s: %v", field, err)
	}
	return addr, nil
}

// parseWallet parses fields that name a signing account. Wallet keys live on
// the ed25519 curve; derived addresses (pools, vaults) do not, so an off-curve
// value here is a client mistake. Program addresses such as the router or
// factory stay on parseAddress.
func parseWallet(field, value string) (domain.Address, error) {
	addr, err := parseAddress(field, value)
	if err != nil {
		return domain.ZeroAddress, err
	}
	if !addr.OnCurve() {
		return domain.ZeroAddress, badRequestf("%s: not a wallet address", field)
	}
	return addr, nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	if value == "" {
		return nil, badRequestf("%s is required", field)
	}
	v, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, badRequestf("%s: %v", field, err)
	}
	return v, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, badRequestf("decode body: %v", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps contract and store errors onto HTTP status codes. Unmapped
// errors are treated as internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, contract.ErrNotInitialized),
		errors.Is(err, contract.ErrPoolNotBootstrapped),
		errors.Is(err, contract.ErrInvalidAccount),
		errors.Is(err, contract.ErrPartialRemoval),
		errors.Is(err, ledger.ErrSupplyCapExceeded),
		errors.Is(err, ledger.ErrInvalidRecipient),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, amm.ErrInvalidPrice),
		errors.Is(err, amm.ErrInvalidTickRange),
		errors.Is(err, amm.ErrInvalidFeeTier),
		errors.Is(err, amm.ErrZeroLiquidity):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contract.ErrNotOwner),
		errors.Is(err, contract.ErrNotPositionOwner):
		return http.StatusForbidden
	case errors.Is(err, contract.ErrUnknownPosition),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrAlreadyInitialized),
		errors.Is(err, contract.ErrPoolAlreadyExists),
		errors.Is(err, contract.ErrDuplicatePosition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
