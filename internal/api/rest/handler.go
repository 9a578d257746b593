package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/varus-ledger/internal/api/middleware"
	"github.com/feral-file/varus-ledger/internal/api/rest/dto"
	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/ledger"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// Mint creates a new token
	// POST /api/v1/tokens
	Mint(c *gin.Context)

	// Transfer moves a token to a new owner, optionally cloning it to a
	// secondary receiver
	// POST /api/v1/tokens/:id/transfer
	Transfer(c *gin.Context)

	// Approve grants another account transfer rights over a token
	// POST /api/v1/tokens/:id/approvals
	Approve(c *gin.Context)

	// Cure moves every token the caller holds to the sink account
	// POST /api/v1/cure
	Cure(c *gin.Context)

	// Register adds an account to the allow list
	// POST /api/v1/allowlist
	Register(c *gin.Context)

	// GetAllowlist lists registered accounts in registration order
	// GET /api/v1/allowlist
	GetAllowlist(c *gin.Context)

	// GetAllowlistEntry reports whether one account is registered
	// GET /api/v1/allowlist/:account
	GetAllowlistEntry(c *gin.Context)

	// GetToken retrieves a single token by id
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// GetTokenMetadata retrieves the metadata of a token
	// GET /api/v1/tokens/:id/metadata
	GetTokenMetadata(c *gin.Context)

	// ListTokens enumerates tokens ordered by id
	// GET /api/v1/tokens?from=<id>&limit=<limit>
	ListTokens(c *gin.Context)

	// GetAccountTokens lists the token ids an account holds, oldest first
	// GET /api/v1/accounts/:account/tokens
	GetAccountTokens(c *gin.Context)

	// GetAccountSupply returns the number of tokens an account holds
	// GET /api/v1/accounts/:account/supply
	GetAccountSupply(c *gin.Context)

	// GetCollection returns collection metadata and total supply
	// GET /api/v1/collection
	GetCollection(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface on top of the ledger engine
type handler struct {
	engine *ledger.Engine
}

// NewHandler creates a new REST API handler
func NewHandler(engine *ledger.Engine) Handler {
	return &handler{
		engine: engine,
	}
}

// Mint creates a new token owned by the request owner or the caller
func (h *handler) Mint(c *gin.Context) {
	caller, ok := middleware.CallerAccount(c)
	if !ok {
		respondBadRequest(c, "Caller account is required")
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	owner := req.Owner
	if owner == "" {
		owner = caller
	}

	id, err := h.engine.Mint(c.Request.Context(), req.Metadata, owner)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MintResponse{
		TokenID: id,
		Owner:   owner,
	})
}

// Transfer moves a token on behalf of the authenticated caller
func (h *handler) Transfer(c *gin.Context) {
	caller, ok := middleware.CallerAccount(c)
	if !ok {
		respondBadRequest(c, "Caller account is required")
		return
	}

	id, ok := parseTokenID(c)
	if !ok {
		respondBadRequest(c, "Invalid token id")
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.engine.Transfer(c.Request.Context(), caller, ledger.TransferParams{
		Receiver:          req.Receiver,
		TokenID:           id,
		SecondaryReceiver: req.SecondaryReceiver,
		ApprovalID:        req.ApprovalID,
		Memo:              req.Memo,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Approve grants transfer rights over a token the caller owns
func (h *handler) Approve(c *gin.Context) {
	caller, ok := middleware.CallerAccount(c)
	if !ok {
		respondBadRequest(c, "Caller account is required")
		return
	}

	id, ok := parseTokenID(c)
	if !ok {
		respondBadRequest(c, "Invalid token id")
		return
	}

	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	approvalID, err := h.engine.Approve(id, caller, req.Grantee)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ApproveResponse{
		TokenID:    id,
		ApprovalID: approvalID,
	})
}

// Cure moves every token the caller holds to the sink account
func (h *handler) Cure(c *gin.Context) {
	caller, ok := middleware.CallerAccount(c)
	if !ok {
		respondBadRequest(c, "Caller account is required")
		return
	}

	result, err := h.engine.Cure(c.Request.Context(), caller)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CureResponse{
		TokenIDs: result.TokenIDs,
		Cured:    len(result.TokenIDs),
	})
}

// Register adds the request account (or the caller) to the allow list
func (h *handler) Register(c *gin.Context) {
	caller, ok := middleware.CallerAccount(c)
	if !ok {
		respondBadRequest(c, "Caller account is required")
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	account := req.Account
	if account == "" {
		account = caller
	}

	if err := h.engine.Register(c.Request.Context(), account); err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RegisterResponse{
		Account:    account,
		Registered: true,
	})
}

// GetAllowlist lists registered accounts in registration order
func (h *handler) GetAllowlist(c *gin.Context) {
	accounts := h.engine.Allowlist()
	c.JSON(http.StatusOK, dto.AllowlistResponse{
		Accounts: accounts,
		Total:    len(accounts),
	})
}

// GetAllowlistEntry reports whether one account is registered
func (h *handler) GetAllowlistEntry(c *gin.Context) {
	account := domain.AccountID(c.Param("account"))
	if !account.Valid() {
		respondBadRequest(c, "Invalid account id")
		return
	}

	c.JSON(http.StatusOK, dto.AllowlistEntryResponse{
		Account:    account,
		Registered: h.engine.IsRegistered(account),
	})
}

// GetToken retrieves a single token by id
func (h *handler) GetToken(c *gin.Context) {
	id, ok := parseTokenID(c)
	if !ok {
		respondBadRequest(c, "Invalid token id")
		return
	}

	tok, err := h.engine.Token(id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		TokenID: tok.ID,
		Owner:   tok.Owner,
	})
}

// GetTokenMetadata retrieves the metadata of a token
func (h *handler) GetTokenMetadata(c *gin.Context) {
	id, ok := parseTokenID(c)
	if !ok {
		respondBadRequest(c, "Invalid token id")
		return
	}

	meta, err := h.engine.Metadata(id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}

// ListTokens enumerates tokens ordered by id
func (h *handler) ListTokens(c *gin.Context) {
	params, err := ParseListTokensQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	tokens := h.engine.Tokens(domain.TokenID(params.From), params.Limit)
	out := make([]dto.TokenResponse, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, dto.TokenResponse{
			TokenID: tok.ID,
			Owner:   tok.Owner,
		})
	}

	c.JSON(http.StatusOK, dto.TokenListResponse{
		Tokens: out,
		Total:  h.engine.TotalSupply(),
	})
}

// GetAccountTokens lists the token ids an account holds, oldest first
func (h *handler) GetAccountTokens(c *gin.Context) {
	account := domain.AccountID(c.Param("account"))
	if !account.Valid() {
		respondBadRequest(c, "Invalid account id")
		return
	}

	c.JSON(http.StatusOK, dto.AccountTokensResponse{
		Account:  account,
		TokenIDs: h.engine.TokensOf(account),
	})
}

// GetAccountSupply returns the number of tokens an account holds
func (h *handler) GetAccountSupply(c *gin.Context) {
	account := domain.AccountID(c.Param("account"))
	if !account.Valid() {
		respondBadRequest(c, "Invalid account id")
		return
	}

	c.JSON(http.StatusOK, dto.AccountSupplyResponse{
		Account: account,
		Supply:  h.engine.SupplyOf(account),
	})
}

// GetCollection returns collection metadata and total supply
func (h *handler) GetCollection(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CollectionResponse{
		Metadata:    h.engine.Collection(),
		TotalSupply: h.engine.TotalSupply(),
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
