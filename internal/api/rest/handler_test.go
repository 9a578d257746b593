package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/varus-ledger/internal/api/middleware"
	"github.com/feral-file/varus-ledger/internal/api/rest"
	"github.com/feral-file/varus-ledger/internal/api/rest/dto"
	"github.com/feral-file/varus-ledger/internal/domain"
	"github.com/feral-file/varus-ledger/internal/ledger"
	"github.com/feral-file/varus-ledger/internal/logger"
)

const testAPIKey = "test-api-key"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// newTestRouter builds a router around a fresh in-memory engine
func newTestRouter() (*gin.Engine, *ledger.Engine) {
	engine := ledger.New(ledger.Options{})

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(engine), middleware.AuthConfig{
		APIKeys: []string{testAPIKey},
	})

	return router, engine
}

// doRequest performs a request as the given caller; empty caller sends no
// authentication at all
func doRequest(router *gin.Engine, method, path string, caller domain.AccountID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("Authorization", "APIKey "+testAPIKey)
		req.Header.Set("X-Caller-Account", string(caller))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func mintToken(t *testing.T, router *gin.Engine, owner domain.AccountID) domain.TokenID {
	t.Helper()
	title := "clinical trial"
	w := doRequest(router, http.MethodPost, "/api/v1/tokens", owner, dto.MintRequest{
		Metadata: domain.TokenMetadata{Title: &title},
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decode[dto.MintResponse](t, w).TokenID
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter()

	w := doRequest(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMint(t *testing.T) {
	router, engine := newTestRouter()

	title := "mutation I"
	w := doRequest(router, http.MethodPost, "/api/v1/tokens", "alice", dto.MintRequest{
		Metadata: domain.TokenMetadata{Title: &title},
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	resp := decode[dto.MintResponse](t, w)
	assert.Equal(t, domain.TokenID(0), resp.TokenID)
	assert.Equal(t, domain.AccountID("alice"), resp.Owner)
	assert.Equal(t, uint64(1), engine.TotalSupply())
}

func TestMintToExplicitOwner(t *testing.T) {
	router, engine := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/tokens", "alice", dto.MintRequest{
		Owner: "bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[dto.MintResponse](t, w)
	assert.Equal(t, domain.AccountID("bob"), resp.Owner)
	assert.Equal(t, []domain.TokenID{0}, engine.TokensOf("bob"))
}

func TestMutationsRequireAuth(t *testing.T) {
	router, _ := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"mint", http.MethodPost, "/api/v1/tokens"},
		{"transfer", http.MethodPost, "/api/v1/tokens/0/transfer"},
		{"approve", http.MethodPost, "/api/v1/tokens/0/approvals"},
		{"cure", http.MethodPost, "/api/v1/cure"},
		{"register", http.MethodPost, "/api/v1/allowlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthRejectsInvalidCallerAccount(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cure", nil)
	req.Header.Set("Authorization", "APIKey "+testAPIKey)
	req.Header.Set("X-Caller-Account", "Not A Valid Account!")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransfer(t *testing.T) {
	router, engine := newTestRouter()
	id := mintToken(t, router, "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/tokens/0/transfer", "alice", dto.TransferRequest{
		Receiver: "bob",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	resp := decode[ledger.TransferResult](t, w)
	assert.Equal(t, id, resp.TokenID)
	assert.Nil(t, resp.MutantID)
	assert.Equal(t, []domain.TokenID{id}, engine.TokensOf("bob"))
}

func TestTransferWithSecondaryReceiver(t *testing.T) {
	router, engine := newTestRouter()
	mintToken(t, router, "alice")

	secondary := domain.AccountID("carol")
	w := doRequest(router, http.MethodPost, "/api/v1/tokens/0/transfer", "alice", dto.TransferRequest{
		Receiver:          "bob",
		SecondaryReceiver: &secondary,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	resp := decode[ledger.TransferResult](t, w)
	require.NotNil(t, resp.MutantID)
	assert.Equal(t, []domain.TokenID{*resp.MutantID}, engine.TokensOf("carol"))
	assert.Equal(t, uint64(2), engine.TotalSupply())
}

func TestTransferErrorMapping(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")

	tests := []struct {
		name     string
		caller   domain.AccountID
		path     string
		body     dto.TransferRequest
		wantCode int
	}{
		{
			name:     "unknown token",
			caller:   "alice",
			path:     "/api/v1/tokens/99/transfer",
			body:     dto.TransferRequest{Receiver: "bob"},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "caller not owner",
			caller:   "bob",
			path:     "/api/v1/tokens/0/transfer",
			body:     dto.TransferRequest{Receiver: "carol"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "transfer to self",
			caller:   "alice",
			path:     "/api/v1/tokens/0/transfer",
			body:     dto.TransferRequest{Receiver: "alice"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid token id",
			caller:   "alice",
			path:     "/api/v1/tokens/notanumber/transfer",
			body:     dto.TransferRequest{Receiver: "bob"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid receiver",
			caller:   "alice",
			path:     "/api/v1/tokens/0/transfer",
			body:     dto.TransferRequest{Receiver: "Not Valid!"},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestApprovedTransferFlow(t *testing.T) {
	router, engine := newTestRouter()
	mintToken(t, router, "alice")

	// alice grants bob an approval
	w := doRequest(router, http.MethodPost, "/api/v1/tokens/0/approvals", "alice", dto.ApproveRequest{
		Grantee: "bob",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	approval := decode[dto.ApproveResponse](t, w)

	// bob transfers pinned to the granted approval id
	w = doRequest(router, http.MethodPost, "/api/v1/tokens/0/transfer", "bob", dto.TransferRequest{
		Receiver:   "carol",
		ApprovalID: &approval.ApprovalID,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Equal(t, []domain.TokenID{0}, engine.TokensOf("carol"))
}

func TestApproveByNonOwnerIsForbidden(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/tokens/0/approvals", "bob", dto.ApproveRequest{
		Grantee: "carol",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaleApprovalConflict(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/tokens/0/approvals", "alice", dto.ApproveRequest{
		Grantee: "bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[dto.ApproveResponse](t, w)

	// re-granting bumps the approval id, making the first one stale
	w = doRequest(router, http.MethodPost, "/api/v1/tokens/0/approvals", "alice", dto.ApproveRequest{
		Grantee: "bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/tokens/0/transfer", "bob", dto.TransferRequest{
		Receiver:   "carol",
		ApprovalID: &first.ApprovalID,
	})
	assert.Equal(t, http.StatusConflict, w.Code, "body: %s", w.Body.String())
}

func TestCure(t *testing.T) {
	router, engine := newTestRouter()
	mintToken(t, router, "alice")
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/cure", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	resp := decode[dto.CureResponse](t, w)
	assert.Equal(t, 2, resp.Cured)
	assert.Equal(t, []domain.TokenID{0, 1}, resp.TokenIDs)
	assert.Empty(t, engine.TokensOf("alice"))
	assert.Equal(t, uint64(2), engine.SupplyOf(domain.SinkAccount))
}

func TestCureWithNoTokensConflicts(t *testing.T) {
	router, _ := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/v1/cure", "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAllowlist(t *testing.T) {
	router, _ := newTestRouter()

	// default registration target is the caller
	w := doRequest(router, http.MethodPost, "/api/v1/allowlist", "alice", dto.RegisterRequest{})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	// explicit account
	w = doRequest(router, http.MethodPost, "/api/v1/allowlist", "alice", dto.RegisterRequest{Account: "bob"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/allowlist", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.AllowlistResponse](t, w)
	assert.Equal(t, []domain.AccountID{"alice", "bob"}, list.Accounts)
	assert.Equal(t, 2, list.Total)

	w = doRequest(router, http.MethodGet, "/api/v1/allowlist/bob", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decode[dto.AllowlistEntryResponse](t, w)
	assert.True(t, entry.Registered)

	w = doRequest(router, http.MethodGet, "/api/v1/allowlist/carol", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry = decode[dto.AllowlistEntryResponse](t, w)
	assert.False(t, entry.Registered)
}

func TestRegisteredReceiverSuppressesMutation(t *testing.T) {
	router, engine := newTestRouter()
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/allowlist", "carol", dto.RegisterRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	secondary := domain.AccountID("carol")
	w = doRequest(router, http.MethodPost, "/api/v1/tokens/0/transfer", "alice", dto.TransferRequest{
		Receiver:          "bob",
		SecondaryReceiver: &secondary,
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ledger.TransferResult](t, w)
	assert.Nil(t, resp.MutantID)
	assert.Empty(t, engine.TokensOf("carol"))
}

func TestGetTokenAndMetadata(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/tokens/0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[dto.TokenResponse](t, w)
	assert.Equal(t, domain.AccountID("alice"), tok.Owner)

	w = doRequest(router, http.MethodGet, "/api/v1/tokens/0/metadata", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decode[domain.TokenMetadata](t, w)
	require.NotNil(t, meta.Title)
	assert.Equal(t, "clinical trial", *meta.Title)

	w = doRequest(router, http.MethodGet, "/api/v1/tokens/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTokensPaging(t *testing.T) {
	router, _ := newTestRouter()
	for i := 0; i < 5; i++ {
		mintToken(t, router, "alice")
	}

	w := doRequest(router, http.MethodGet, "/api/v1/tokens?from=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.TokenListResponse](t, w)
	require.Len(t, resp.Tokens, 2)
	assert.Equal(t, domain.TokenID(2), resp.Tokens[0].TokenID)
	assert.Equal(t, domain.TokenID(3), resp.Tokens[1].TokenID)
	assert.Equal(t, uint64(5), resp.Total)
}

func TestAccountEndpoints(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/accounts/alice/tokens", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tokens := decode[dto.AccountTokensResponse](t, w)
	assert.Equal(t, []domain.TokenID{0, 1}, tokens.TokenIDs)

	w = doRequest(router, http.MethodGet, "/api/v1/accounts/alice/supply", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	supply := decode[dto.AccountSupplyResponse](t, w)
	assert.Equal(t, uint64(2), supply.Supply)

	w = doRequest(router, http.MethodGet, "/api/v1/accounts/nobody/supply", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	supply = decode[dto.AccountSupplyResponse](t, w)
	assert.Equal(t, uint64(0), supply.Supply)
}

func TestGetCollection(t *testing.T) {
	router, _ := newTestRouter()
	mintToken(t, router, "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/collection", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.CollectionResponse](t, w)
	assert.Equal(t, "thevarus2022", resp.Metadata.Name)
	assert.Equal(t, "VARUS", resp.Metadata.Symbol)
	assert.Equal(t, uint64(1), resp.TotalSupply)
}
