package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/ledger/engine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOwnerService struct {
	mock.Mock
}

func (m *MockOwnerService) CreateOwner(ctx context.Context, name string) (*owner.Owner, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*owner.Owner), args.Error(1)
}

func (m *MockOwnerService) GetOwner(ctx context.Context, ownerID uuid.UUID) (*owner.Owner, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*owner.Owner), args.Error(1)
}

func (m *MockOwnerService) OpenAccount(ctx context.Context, ownerID uuid.UUID, req engine.OpenAccountRequest) (*owner.Account, *engine.Result, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	res, _ := args.Get(1).(*engine.Result)
	return args.Get(0).(*owner.Account), res, args.Error(2)
}

func (m *MockOwnerService) account(args mock.Arguments) (*owner.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*owner.Account), args.Error(1)
}

func (m *MockOwnerService) BlockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	return m.account(m.Called(ctx, ownerID, accountID))
}

func (m *MockOwnerService) UnblockAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	return m.account(m.Called(ctx, ownerID, accountID))
}

func (m *MockOwnerService) CloseAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*owner.Account, error) {
	return m.account(m.Called(ctx, ownerID, accountID))
}

func (m *MockOwnerService) SaveRecipient(ctx context.Context, ownerID uuid.UUID, req engine.SaveRecipientRequest) (*owner.Recipient, error) {
	args := m.Called(ctx, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*owner.Recipient), args.Error(1)
}

func TestOwnerHandler_Create(t *testing.T) {
	svc := new(MockOwnerService)
	h := NewOwnerHandler(newTestLogger(), svc)
	router := setupTestRouter()
	// Create sits outside RequireOwner in the real router; any header works here.
	router.POST("/owners", h.Create)

	now := time.Now().UTC()
	created := &owner.Owner{ID: uuid.New(), Name: "Ayşe", CreatedAt: now, UpdatedAt: now}
	svc.On("CreateOwner", mock.Anything, "Ayşe").Return(created, nil)

	rr := doJSON(router, http.MethodPost, "/owners", uuid.New(), CreateOwnerRequest{Name: "Ayşe"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Data OwnerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.Data.ID)
	assert.Equal(t, "Ayşe", resp.Data.Name)
}

func TestOwnerHandler_Me(t *testing.T) {
	ownerID := uuid.New()

	t.Run("projects bill status", func(t *testing.T) {
		svc := new(MockOwnerService)
		h := NewOwnerHandler(newTestLogger(), svc)
		h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
		router := setupTestRouter()
		router.GET("/owners/me", h.Me)

		o := &owner.Owner{
			ID:   ownerID,
			Name: "Ayşe",
			Bills: []*owner.Bill{
				{ID: uuid.New(), Payee: "İSKİ", Amount: decimal.NewFromInt(150), Currency: shared.CurrencyTRY,
					DueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
			},
		}
		svc.On("GetOwner", mock.Anything, ownerID).Return(o, nil)

		rr := doJSON(router, http.MethodGet, "/owners/me", ownerID, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data OwnerResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Bills, 1)
		assert.Equal(t, shared.BillStatusOverdue, resp.Data.Bills[0].Status)
	})

	t.Run("unknown owner", func(t *testing.T) {
		svc := new(MockOwnerService)
		h := NewOwnerHandler(newTestLogger(), svc)
		router := setupTestRouter()
		router.GET("/owners/me", h.Me)

		svc.On("GetOwner", mock.Anything, ownerID).Return(nil, shared.ErrOwnerNotFound)

		rr := doJSON(router, http.MethodGet, "/owners/me", ownerID, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestOwnerHandler_OpenAccount(t *testing.T) {
	ownerID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockOwnerService)
		h := NewOwnerHandler(newTestLogger(), svc)
		router := setupTestRouter()
		router.POST("/accounts", h.OpenAccount)

		acc := &owner.Account{ID: uuid.New(), IBAN: "TR330006100519786457841326", Currency: shared.CurrencyUSD, Status: shared.AccountStatusActive}
		svc.On("OpenAccount", mock.Anything, ownerID, mock.MatchedBy(func(req engine.OpenAccountRequest) bool {
			return req.Currency == shared.CurrencyUSD && req.InitialDeposit.IsZero()
		})).Return(acc, &engine.Result{}, nil)

		rr := doJSON(router, http.MethodPost, "/accounts", ownerID, OpenAccountRequest{Currency: "usd"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), acc.ID.String())
		svc.AssertExpectations(t)
	})

	t.Run("Unsupported currency", func(t *testing.T) {
		svc := new(MockOwnerService)
		h := NewOwnerHandler(newTestLogger(), svc)
		router := setupTestRouter()
		router.POST("/accounts", h.OpenAccount)

		rr := doJSON(router, http.MethodPost, "/accounts", ownerID, OpenAccountRequest{Currency: "CHF"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "UNSUPPORTED_CURRENCY")
		svc.AssertNotCalled(t, "OpenAccount", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOwnerHandler_ChangeAccount(t *testing.T) {
	ownerID := uuid.New()
	accountID := uuid.New()

	svc := new(MockOwnerService)
	h := NewOwnerHandler(newTestLogger(), svc)
	router := setupTestRouter()
	router.POST("/accounts/:id/block", h.BlockAccount)
	router.POST("/accounts/:id/close", h.CloseAccount)

	svc.On("BlockAccount", mock.Anything, ownerID, accountID).
		Return(&owner.Account{ID: accountID, Status: shared.AccountStatusBlocked}, nil)
	svc.On("CloseAccount", mock.Anything, ownerID, accountID).Return(nil, shared.ErrAccountHasBalance)

	rr := doJSON(router, http.MethodPost, "/accounts/"+accountID.String()+"/block", ownerID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"BLOCKED"`)

	rr = doJSON(router, http.MethodPost, "/accounts/"+accountID.String()+"/close", ownerID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "ACCOUNT_HAS_BALANCE")
}

func TestOwnerHandler_SaveRecipient(t *testing.T) {
	ownerID := uuid.New()
	svc := new(MockOwnerService)
	h := NewOwnerHandler(newTestLogger(), svc)
	router := setupTestRouter()
	router.POST("/recipients", h.SaveRecipient)

	svc.On("SaveRecipient", mock.Anything, ownerID, engine.SaveRecipientRequest{
		Name: "Mehmet", IBAN: "TR330006100519786457841326", Currency: shared.CurrencyTRY,
	}).Return(&owner.Recipient{ID: uuid.New(), Name: "Mehmet", IBAN: "TR330006100519786457841326"}, nil)

	rr := doJSON(router, http.MethodPost, "/recipients", ownerID, SaveRecipientRequest{
		Name: "Mehmet", IBAN: "TR330006100519786457841326", Currency: "TRY",
	})

	assert.Equal(t, http.StatusCreated, rr.Code)
	svc.AssertExpectations(t)
}
