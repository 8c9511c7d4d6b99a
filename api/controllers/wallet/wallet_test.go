package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/settlement-engine/api/controllers/dto"
	"github.com/angelmondragon/settlement-engine/api/middleware"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type stubWallet struct {
	balance int64
	history []models.WalletTransaction
	err     error
	limit   int
}

func (s *stubWallet) Balance(context.Context, string) (int64, error) {
	return s.balance, s.err
}

func (s *stubWallet) History(_ context.Context, _ string, limit int) ([]models.WalletTransaction, error) {
	s.limit = limit
	return s.history, s.err
}

func TestSummary(t *testing.T) {
	svc := &stubWallet{
		balance: 3500,
		history: []models.WalletTransaction{{
			Type:              enums.WalletTransactionTypeCredit,
			AmountCents:       3500,
			BalanceAfterCents: 3500,
			Description:       "Refund for cancelled order ORD-1",
		}},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet?limit=5", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-1"))
	resp := httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.limit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.limit)
	}
	var envelope struct {
		Data dto.Wallet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.BalanceCents != 3500 || envelope.Data.Balance != "$35.00" || len(envelope.Data.Transactions) != 1 {
		t.Fatalf("unexpected wallet %+v", envelope.Data)
	}
}

func TestSummaryFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-1"))
	resp := httptest.NewRecorder()
	Summary(&stubWallet{err: errors.New("db down")}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
