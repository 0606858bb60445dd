package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	var ok signup
	require.NoError(t, DecodeJSONBody(jsonRequest(`{"email":"a@example.com","password":"secret"}`), &ok))
	assert.Equal(t, "a@example.com", ok.Email)

	cases := map[string]string{
		"malformed":      `{"email":`,
		"unknown field":  `{"email":"a@example.com","password":"secret","admin":true}`,
		"trailing value": `{"email":"a@example.com","password":"secret"} {}`,
		"too large":      `{"email":"` + strings.Repeat("a", MaxJSONBody) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest signup
			err := DecodeJSONBody(jsonRequest(body), &dest)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&signup{Email: "nope", Password: "abc"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)

	details, ok := typed.Details().([]pkgerrors.FieldDetail)
	require.True(t, ok)
	assert.ElementsMatch(t, []pkgerrors.FieldDetail{
		{Field: "email", Reason: "must be a valid email"},
		{Field: "password", Reason: "must be at least 5"},
	}, details)
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&bad=x&big=99", nil)

	page, err := ParseQueryInt(r, "page", 1, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := ParseQueryInt(r, "missing", 1, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, def)

	_, err = ParseQueryInt(r, "bad", 1, 1, 50)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(r, "big", 1, 1, 50)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Equal(t, pkgerrors.FieldDetail{Field: "big", Reason: "must be between 1 and 50"}, pkgerrors.As(err).Details())
}

func TestParsePage(t *testing.T) {
	for raw, want := range map[string]int{"": 1, "?page=": 1, "?page=%204%20": 4} {
		page, err := ParsePage(httptest.NewRequest(http.MethodGet, "/"+raw, nil))
		require.NoError(t, err, raw)
		assert.Equal(t, want, page, raw)
	}
	for _, raw := range []string{"?page=0", "?page=abc", "?page=-2"} {
		_, err := ParsePage(httptest.NewRequest(http.MethodGet, "/"+raw, nil))
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), raw)
	}
}

func TestParseUUID(t *testing.T) {
	_, err := ParseUUID("not-a-uuid", "id")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = ParseUUID(" 3f1c2a8e-2a7b-4d0c-9d7e-0a1b2c3d4e5f ", "id")
	assert.NoError(t, err)
}
