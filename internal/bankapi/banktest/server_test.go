package banktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, s *Service, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func registerConfirmLogin(t *testing.T, s *Service, cpf, email string) string {
	t.Helper()
	code, body := doJSON(t, s, http.MethodPost, "/cadastro", "",
		`{"cpf":"`+cpf+`","full_name":"Teste","email":"`+email+`","password":"pw","confirmPassword":"pw"}`)
	require.Equal(t, http.StatusCreated, code)
	token := body["confirmToken"].(string)

	req := httptest.NewRequest(http.MethodGet, "/confirm-email?token="+token, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, MsgEmailConfirmed, rec.Body.String())

	code, body = doJSON(t, s, http.MethodPost, "/login", "", `{"email":"`+email+`","password":"pw"}`)
	require.Equal(t, http.StatusOK, code)
	return body["token"].(string)
}

func TestRegister_Validation(t *testing.T) {
	s := New()

	code, body := doJSON(t, s, http.MethodPost, "/cadastro", "",
		`{"cpf":"1","full_name":"a","email":"a@test.com","password":"x","confirmPassword":"y"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgPasswordMismatch, body["message"])

	code, _ = doJSON(t, s, http.MethodPost, "/cadastro", "", `{"cpf":"1"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	ok := `{"cpf":"1","full_name":"a","email":"a@test.com","password":"x","confirmPassword":"x"}`
	code, _ = doJSON(t, s, http.MethodPost, "/cadastro", "", ok)
	assert.Equal(t, http.StatusCreated, code)
	code, body = doJSON(t, s, http.MethodPost, "/cadastro", "", ok)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, MsgAlreadyRegistered, body["message"])
}

func TestConfirmEmail_IsOneShot(t *testing.T) {
	s := New()
	_, body := doJSON(t, s, http.MethodPost, "/cadastro", "",
		`{"cpf":"1","full_name":"a","email":"a@test.com","password":"x","confirmPassword":"x"}`)
	token := body["confirmToken"].(string)

	for i, want := range []int{http.StatusOK, http.StatusBadRequest} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/confirm-email?token="+token, nil))
		assert.Equal(t, want, rec.Code, "attempt %d", i+1)
	}
}

func TestLogin_UnconfirmedRejected(t *testing.T) {
	s := New()
	doJSON(t, s, http.MethodPost, "/cadastro", "",
		`{"cpf":"1","full_name":"a","email":"a@test.com","password":"x","confirmPassword":"x"}`)

	code, body := doJSON(t, s, http.MethodPost, "/login", "", `{"email":"a@test.com","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, MsgInvalidCredential, body["message"])

	relaxed := New(WithRequireConfirmation(false))
	doJSON(t, relaxed, http.MethodPost, "/cadastro", "",
		`{"cpf":"1","full_name":"a","email":"a@test.com","password":"x","confirmPassword":"x"}`)
	code, _ = doJSON(t, relaxed, http.MethodPost, "/login", "", `{"email":"a@test.com","password":"x"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestLedgerArithmetic(t *testing.T) {
	s := New()
	token := registerConfirmLogin(t, s, "11111111111", "a@test.com")
	registerConfirmLogin(t, s, "22222222222", "b@test.com")

	code, _ := doJSON(t, s, http.MethodPost, "/points/send", token, `{"recipientCpf":"22222222222","amount":50}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, s, http.MethodPost, "/caixinha/deposit", token, `{"amount":30}`)
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, s, http.MethodGet, "/points/saldo", token, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(20), body["normal_balance"])
	assert.Equal(t, float64(30), body["piggy_bank_balance"])

	code, body = doJSON(t, s, http.MethodPost, "/caixinha/deposit", token, `{"amount":21}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, MsgInsufficient, body["message"])

	code, _ = doJSON(t, s, http.MethodPost, "/points/send", token, `{"recipientCpf":"11111111111","amount":1}`)
	assert.Equal(t, http.StatusNotFound, code, "self transfer")
}

func TestDeleteAccount_IsTerminal(t *testing.T) {
	s := New(WithStartingBalance(10))
	token := registerConfirmLogin(t, s, "11111111111", "a@test.com")

	code, body := doJSON(t, s, http.MethodDelete, "/account", token, `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, MsgWrongPassword, body["message"])

	code, body = doJSON(t, s, http.MethodDelete, "/account", token, `{"password":"pw"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, MsgAccountDeleted, body["message"])

	code, _ = doJSON(t, s, http.MethodGet, "/points/saldo", token, "")
	assert.Equal(t, http.StatusUnauthorized, code, "session of deleted account")

	code, body = doJSON(t, s, http.MethodPost, "/login", "", `{"email":"a@test.com","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, MsgInvalidCredential, body["message"])

	acct, ok := s.Account("11111111111")
	require.True(t, ok)
	assert.True(t, acct.Deleted)
	assert.Equal(t, int64(10), acct.NormalBalance)
}

func TestAuthorizedRoutesRequireBearer(t *testing.T) {
	s := New()
	for _, path := range []string{"/points/saldo"} {
		code, body := doJSON(t, s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, MsgInvalidToken, body["message"])

		code, _ = doJSON(t, s, http.MethodGet, path, "forged.token.value", "")
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	assert.Equal(t, []string{"GET /points/saldo", "GET /points/saldo"}, s.Requests())
}

func TestAccount_PasswordHashing(t *testing.T) {
	var a Account
	require.NoError(t, a.setPassword("Senha@123"))

	assert.Len(t, a.PasswordHash, argonKeyLen)
	assert.NotContains(t, string(a.PasswordHash), "Senha@123")
	assert.True(t, a.checkPassword("Senha@123"))
	assert.False(t, a.checkPassword("senha@123"))
	assert.False(t, (&Account{}).checkPassword(""))

	var b Account
	require.NoError(t, b.setPassword("Senha@123"))
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash, "salts must differ")
}
