package dto

import (
	"errors"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// MintRequest is the body for POST /api/v1/tokens
type MintRequest struct {
	// Owner receives the minted token; defaults to the caller when empty
	Owner    domain.AccountID     `json:"owner"`
	Metadata domain.TokenMetadata `json:"metadata"`
}

func (r *MintRequest) Validate() error {
	if r.Owner != "" && !r.Owner.Valid() {
		return errors.New("invalid owner account id")
	}
	return nil
}

// MintResponse is the response for POST /api/v1/tokens
type MintResponse struct {
	TokenID domain.TokenID   `json:"token_id"`
	Owner   domain.AccountID `json:"owner"`
}

// TransferRequest is the body for POST /api/v1/tokens/:id/transfer
type TransferRequest struct {
	Receiver          domain.AccountID  `json:"receiver"`
	SecondaryReceiver *domain.AccountID `json:"secondary_receiver,omitempty"`
	ApprovalID        *uint64           `json:"approval_id,omitempty"`
	Memo              *string           `json:"memo,omitempty"`
}

func (r *TransferRequest) Validate() error {
	if !r.Receiver.Valid() {
		return errors.New("invalid receiver account id")
	}
	if r.SecondaryReceiver != nil && !r.SecondaryReceiver.Valid() {
		return errors.New("invalid secondary receiver account id")
	}
	return nil
}

// ApproveRequest is the body for POST /api/v1/tokens/:id/approvals
type ApproveRequest struct {
	Grantee domain.AccountID `json:"grantee"`
}

func (r *ApproveRequest) Validate() error {
	if !r.Grantee.Valid() {
		return errors.New("invalid grantee account id")
	}
	return nil
}

// ApproveResponse is the response for POST /api/v1/tokens/:id/approvals
type ApproveResponse struct {
	TokenID    domain.TokenID `json:"token_id"`
	ApprovalID uint64         `json:"approval_id"`
}

// RegisterRequest is the body for POST /api/v1/allowlist
type RegisterRequest struct {
	// Account to register; defaults to the caller when empty
	Account domain.AccountID `json:"account"`
}

func (r *RegisterRequest) Validate() error {
	if r.Account != "" && !r.Account.Valid() {
		return errors.New("invalid account id")
	}
	return nil
}

// RegisterResponse is the response for POST /api/v1/allowlist
type RegisterResponse struct {
	Account    domain.AccountID `json:"account"`
	Registered bool             `json:"registered"`
}

// AllowlistResponse is the response for GET /api/v1/allowlist
type AllowlistResponse struct {
	Accounts []domain.AccountID `json:"accounts"`
	Total    int                `json:"total"`
}

// AllowlistEntryResponse is the response for GET /api/v1/allowlist/:account
type AllowlistEntryResponse struct {
	Account    domain.AccountID `json:"account"`
	Registered bool             `json:"registered"`
}

// TokenResponse is a single owned token
type TokenResponse struct {
	TokenID domain.TokenID   `json:"token_id"`
	Owner   domain.AccountID `json:"owner"`
}

// TokenListResponse is the response for paged token enumeration
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
	Total  uint64          `json:"total"`
}

// AccountTokensResponse lists the tokens an account holds, oldest first
type AccountTokensResponse struct {
	Account  domain.AccountID `json:"account"`
	TokenIDs []domain.TokenID `json:"token_ids"`
}

// AccountSupplyResponse is the response for GET /api/v1/accounts/:account/supply
type AccountSupplyResponse struct {
	Account domain.AccountID `json:"account"`
	Supply  uint64           `json:"supply"`
}

// CollectionResponse is the response for GET /api/v1/collection
type CollectionResponse struct {
	Metadata    domain.CollectionMetadata `json:"metadata"`
	TotalSupply uint64                    `json:"total_supply"`
}

// CureResponse is the response for POST /api/v1/cure
type CureResponse struct {
	TokenIDs []domain.TokenID `json:"token_ids"`
	Cured    int              `json:"cured"`
}
