package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gowebpki/jcs"
)

// MetadataSpec is the metadata schema version carried by collection metadata.
const MetadataSpec = "nft-1.0.0"

// SinkAccount is the well-known terminal holder for burned and cured tokens.
// Tokens owned by the sink stay queryable but are excluded from active
// enumeration by callers.
const SinkAccount AccountID = "burn"

// AccountID identifies an account on the ledger. The ledger never
// authenticates accounts itself; identity is supplied by the caller
// of every public operation.
type AccountID string

var accountIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]{0,62}[a-z0-9])?$`)

// Valid reports whether the account identifier is well formed.
func (a AccountID) Valid() bool {
	return accountIDPattern.MatchString(string(a))
}

func (a AccountID) String() string {
	return string(a)
}

// TokenID identifies a token within the collection. IDs are allocated by a
// single incrementing counter and are never reused.
type TokenID uint64

// Token is the system of record for existence and ownership. Identity is the
// ID; only the owner ever changes after mint.
type Token struct {
	ID    TokenID   `json:"id"`
	Owner AccountID `json:"owner"`
}

// TokenMetadata is the immutable per-token metadata record, written once at
// mint. A mutant token produced by a dual transfer shares the metadata of the
// token it was cloned from.
type TokenMetadata struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Media         *string `json:"media,omitempty"`
	MediaHash     []byte  `json:"media_hash,omitempty"`
	Copies        *uint64 `json:"copies,omitempty"`
	IssuedAt      *uint64 `json:"issued_at,omitempty"`
	StartsAt      *uint64 `json:"starts_at,omitempty"`
	ExpiresAt     *uint64 `json:"expires_at,omitempty"`
	UpdatedAt     *uint64 `json:"updated_at,omitempty"`
	Extra         *string `json:"extra,omitempty"`
	Reference     *string `json:"reference,omitempty"`
	ReferenceHash []byte  `json:"reference_hash,omitempty"`
}

// Hash returns the hex-encoded SHA-256 of the canonical (RFC 8785) JSON form
// of the metadata. Used to detect metadata drift between the engine and the
// persisted snapshot without comparing full documents.
func (m *TokenMetadata) Hash() (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize metadata: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CollectionMetadata describes the deployed collection. Constructed once at
// ledger initialization and immutable afterwards.
type CollectionMetadata struct {
	Spec          string  `json:"spec"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Icon          *string `json:"icon,omitempty"`
	BaseURI       *string `json:"base_uri,omitempty"`
	Reference     *string `json:"reference,omitempty"`
	ReferenceHash []byte  `json:"reference_hash,omitempty"`
}

// DefaultCollectionMetadata returns the collection metadata used when a
// deployment does not supply its own.
func DefaultCollectionMetadata() CollectionMetadata {
	return CollectionMetadata{
		Spec:   MetadataSpec,
		Name:   "thevarus2022",
		Symbol: "VARUS",
	}
}
