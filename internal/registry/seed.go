package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/feral-file/varus-ledger/internal/domain"
)

// SeedRegistry holds accounts that must be present on the allow list when the
// ledger starts. Registration is idempotent, so reloading the same seed on
// every boot is safe.
type SeedRegistry interface {
	// Accounts returns the seed accounts in file order
	Accounts() []domain.AccountID

	// Contains checks if an account is part of the seed
	Contains(account domain.AccountID) bool
}

// SeedData represents the structure of the allowlist seed file
type SeedData struct {
	Accounts []string `json:"accounts"`
}

// seedRegistry is the internal implementation of SeedRegistry
type seedRegistry struct {
	accounts []domain.AccountID
	// Fast lookup map
	members map[domain.AccountID]bool
}

// LoadSeed loads the allowlist seed registry from a JSON file
func LoadSeed(filePath string) (SeedRegistry, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec,G304 // This should be a trusted file
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seedData SeedData
	if err := json.Unmarshal(data, &seedData); err != nil {
		return nil, fmt.Errorf("failed to parse seed JSON: %w", err)
	}

	reg := &seedRegistry{
		members: make(map[domain.AccountID]bool),
	}

	for _, raw := range seedData.Accounts {
		account := domain.AccountID(raw)
		if !account.Valid() {
			return nil, fmt.Errorf("invalid account id in seed file: %q", raw)
		}
		if reg.members[account] {
			continue
		}
		reg.members[account] = true
		reg.accounts = append(reg.accounts, account)
	}

	return reg, nil
}

func (r *seedRegistry) Accounts() []domain.AccountID {
	return append([]domain.AccountID(nil), r.accounts...)
}

func (r *seedRegistry) Contains(account domain.AccountID) bool {
	return r.members[account]
}
