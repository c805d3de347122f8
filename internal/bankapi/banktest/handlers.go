package banktest

import (
	"context"
	"encoding/json"
	"net/http"
)

func contextWithCPF(ctx context.Context, cpf string) context.Context {
	return context.WithValue(ctx, ctxKey{}, cpf)
}

func cpfFromContext(ctx context.Context) string {
	cpf, _ := ctx.Value(ctxKey{}).(string)
	return cpf
}

type registerBody struct {
	CPF             string `json:"cpf"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgMissingFields)
		return
	}
	if body.CPF == "" || body.FullName == "" || body.Email == "" || body.Password == "" {
		writeMessage(w, http.StatusBadRequest, MsgMissingFields)
		return
	}
	if body.Password != body.ConfirmPassword {
		writeMessage(w, http.StatusBadRequest, MsgPasswordMismatch)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[body.CPF]; exists {
		writeMessage(w, http.StatusConflict, MsgAlreadyRegistered)
		return
	}
	if _, exists := s.byEmail[body.Email]; exists {
		writeMessage(w, http.StatusConflict, MsgAlreadyRegistered)
		return
	}

	acct := &Account{
		CPF:           body.CPF,
		FullName:      body.FullName,
		Email:         body.Email,
		NormalBalance: s.startingBalance,
	}
	if err := acct.setPassword(body.Password); err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.accounts[body.CPF] = acct
	s.byEmail[body.Email] = body.CPF

	token := newConfirmToken()
	s.confirmTokens[token] = body.CPF

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":      MsgRegistered,
		"confirmToken": token,
	})
}

func (s *Service) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	s.mu.Lock()
	defer s.mu.Unlock()

	cpf, ok := s.confirmTokens[token]
	if !ok || token == "" {
		writeText(w, http.StatusBadRequest, MsgInvalidToken)
		return
	}
	delete(s.confirmTokens, token)
	if acct, found := s.accounts[cpf]; found {
		acct.Confirmed = true
	}
	writeText(w, http.StatusOK, MsgEmailConfirmed)
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusUnauthorized, MsgInvalidCredential)
		return
	}

	s.mu.Lock()
	cpf, found := s.byEmail[body.Email]
	var acct *Account
	if found {
		acct = s.accounts[cpf]
	}
	valid := acct != nil &&
		!acct.Deleted &&
		acct.checkPassword(body.Password) &&
		(acct.Confirmed || !s.requireConfirmation)
	s.mu.Unlock()

	if !valid {
		writeMessage(w, http.StatusUnauthorized, MsgInvalidCredential)
		return
	}

	token, err := s.issueSession(cpf)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type sendPointsBody struct {
	RecipientCPF string `json:"recipientCpf"`
	Amount       int64  `json:"amount"`
}

func (s *Service) handleSendPoints(w http.ResponseWriter, r *http.Request) {
	var body sendPointsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, MsgInvalidAmount)
		return
	}
	sender := cpfFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.accounts[body.RecipientCPF]
	if !ok || recipient.Deleted || body.RecipientCPF == sender {
		writeMessage(w, http.StatusNotFound, MsgRecipientNotFound)
		return
	}
	from := s.accounts[sender]
	if from.NormalBalance < body.Amount {
		writeMessage(w, http.StatusBadRequest, MsgInsufficient)
		return
	}
	from.NormalBalance -= body.Amount
	recipient.NormalBalance += body.Amount
	writeMessage(w, http.StatusOK, MsgPointsSent)
}

type depositBody struct {
	Amount int64 `json:"amount"`
}

func (s *Service) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var body depositBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, MsgInvalidAmount)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[cpfFromContext(r.Context())]
	if acct.NormalBalance < body.Amount {
		writeMessage(w, http.StatusBadRequest, MsgInsufficient)
		return
	}
	acct.NormalBalance -= body.Amount
	acct.PiggyBankBalance += body.Amount
	writeMessage(w, http.StatusOK, MsgDeposited)
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := *s.accounts[cpfFromContext(r.Context())]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int64{
		"piggy_bank_balance": acct.PiggyBankBalance,
		"normal_balance":     acct.NormalBalance,
	})
}

type deleteBody struct {
	Password string `json:"password"`
}

func (s *Service) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body deleteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.accounts[cpfFromContext(r.Context())]
	if !acct.checkPassword(body.Password) {
		writeMessage(w, http.StatusUnauthorized, MsgWrongPassword)
		return
	}
	acct.Deleted = true
	writeMessage(w, http.StatusOK, MsgAccountDeleted)
}
