package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassOf(t *testing.T) {
	cases := []struct {
		code      Code
		status    int
		retryable bool
		expose    bool
	}{
		{CodeValidation, http.StatusBadRequest, false, true},
		{CodeUnauthorized, http.StatusUnauthorized, false, true},
		{CodeForbidden, http.StatusForbidden, false, true},
		{CodeNotFound, http.StatusNotFound, false, true},
		{CodeConflict, http.StatusConflict, false, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, false, true},
		{CodeRateLimit, http.StatusTooManyRequests, false, true},
		{CodeInternal, http.StatusInternalServerError, true, false},
		{CodeDependency, http.StatusServiceUnavailable, true, false},
		{"SOMETHING_UNKNOWN", http.StatusInternalServerError, true, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			class := ClassOf(tc.code)
			assert.Equal(t, tc.status, class.Status)
			assert.Equal(t, tc.retryable, class.Retryable)
			assert.Equal(t, tc.expose, class.Expose)
			assert.NotEmpty(t, class.Fallback)
		})
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	internal := Persistence(stdErrors.New("pq: relation missing"), "insert order")
	assert.Equal(t, "internal server error", ClassOf(internal.Code()).PublicMessage(internal))

	nf := NotFound("order")
	assert.Equal(t, "order not found", ClassOf(nf.Code()).PublicMessage(nf))

	blank := New(CodeConflict, "")
	assert.Equal(t, "conflict detected", ClassOf(blank.Code()).PublicMessage(blank))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: ctx", wrapped.Error())

	assert.Nil(t, New(CodeValidation, "x").Details())
	assert.Equal(t, "d", New(CodeValidation, "x").WithDetails("d").Details())
}

func TestAsAndIsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Forbidden("not your order"))
	require.NotNil(t, As(wrapped))
	assert.True(t, Is(wrapped, CodeForbidden))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))

	var nilErr *Error
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Empty(t, nilErr.Error())
}

func TestValidationCarriesField(t *testing.T) {
	v := Validation("price", "price must be a currency amount")
	detail, ok := v.Details().(FieldDetail)
	require.True(t, ok)
	assert.Equal(t, "price", detail.Field)
	assert.Equal(t, CodeDependency, Upstream(stdErrors.New("timeout"), "create checkout session").Code())
}

func TestLogFields(t *testing.T) {
	assert.Empty(t, LogFields(nil))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_checkout_session_id_key", TableName: "orders"}
	fields := LogFields(Persistence(fmt.Errorf("create: %w", pgErr), "insert order"))
	assert.Equal(t, CodeInternal, fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "orders_checkout_session_id_key", fields["pg_constraint"])
	assert.Len(t, fields["error_chain"], 3)
	assert.NotContains(t, fields, "pg_detail")

	pqFields := LogFields(&pq.Error{Code: "40001", Detail: "retry"})
	assert.Equal(t, "40001", pqFields["pg_code"])
	assert.Equal(t, "retry", pqFields["pg_detail"])
	assert.NotContains(t, pqFields, "error_code")
}
