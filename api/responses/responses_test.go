package responses

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_number": "ORD-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"order_number":"ORD-1"}}`, w.Body.String())
}

func TestWriteSuccessUnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, math.Inf(1))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, w).Code)
}

func TestWriteErrorTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-123")
	err := pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for 1 product").
		WithDetails(map[string]string{"product_id": "demo"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusConflict, w.Code)
	got := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeOutOfStock), got.Code)
	assert.Equal(t, "insufficient stock for 1 product", got.Message)
	assert.Equal(t, string(pkgerrors.OutcomeOutOfStock), got.Outcome)
	assert.False(t, got.Retryable)
	assert.Equal(t, "req-123", got.RequestID)
	assert.NotNil(t, got.Details)
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w).Message)
}

func TestWriteErrorGatewayUnavailableIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "stripe timeout"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	got := decodeError(t, w)
	assert.True(t, got.Retryable)
	assert.Equal(t, string(pkgerrors.OutcomeRetry), got.Outcome)
}

func TestWriteErrorNil(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
