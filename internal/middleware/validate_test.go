package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagvault/api/internal/dto"
)

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestValidateBodyAcceptsValidSignup(t *testing.T) {
	body := `{
		"name": "collector",
		"email": "user@example.com",
		"password": "Sup3rSecret",
		"isTermsAndPrivacyAccepted": true,
		"termsAndPrivacyAcceptedAt": "2026-08-01T12:00:00Z"
	}`

	rec, c, next := runMiddleware(ValidateBody[dto.SignupRequest](), postJSON(body))

	assert.True(t, next)
	assert.Equal(t, http.StatusOK, rec.Code)
	got := Body[dto.SignupRequest](c)
	assert.Equal(t, "user@example.com", got.Email)
	assert.True(t, got.IsTermsAndPrivacyAccepted)
}

func TestValidateBodyReportsFieldErrors(t *testing.T) {
	body := `{
		"name": "ab",
		"email": "not-an-email",
		"password": "alllowercase1",
		"isTermsAndPrivacyAccepted": true,
		"termsAndPrivacyAcceptedAt": "2026-08-01T12:00:00Z"
	}`

	rec, _, next := runMiddleware(ValidateBody[dto.SignupRequest](), postJSON(body))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)

	fields := map[string]bool{}
	for _, fe := range resp.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
}

func TestValidateBodyRejectsUnacceptedTerms(t *testing.T) {
	body := `{
		"name": "collector",
		"email": "user@example.com",
		"password": "Sup3rSecret",
		"isTermsAndPrivacyAccepted": false,
		"termsAndPrivacyAcceptedAt": "2026-08-01T12:00:00Z"
	}`

	rec, _, next := runMiddleware(ValidateBody[dto.SignupRequest](), postJSON(body))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "isTermsAndPrivacyAccepted")
}

func TestValidateBodyMalformedJSON(t *testing.T) {
	rec, _, next := runMiddleware(ValidateBody[dto.SignupRequest](), postJSON(`{"name": `))

	assert.False(t, next)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed JSON body")
}

func TestValidateBodyOTP(t *testing.T) {
	rec, _, next := runMiddleware(ValidateBody[dto.VerifyOTPRequest](), postJSON(`{"otp":"123456"}`))
	assert.True(t, next)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, bad := range []string{`{"otp":"12345"}`, `{"otp":"abcdef"}`, `{}`} {
		rec, _, next = runMiddleware(ValidateBody[dto.VerifyOTPRequest](), postJSON(bad))
		assert.False(t, next, "body %s should fail", bad)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
}
