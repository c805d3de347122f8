// Package banktest provides an in-process stand-in for the points service.
//
// It implements the same HTTP contract as the live deployment (routes, status
// codes, literal Portuguese messages) over an in-memory ledger so that the
// client and the scenario runner can be exercised without network access.
package banktest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Messages returned by the service.
const (
	MsgRegistered        = "Cadastro realizado com sucesso."
	MsgEmailConfirmed    = "E-mail confirmado com sucesso."
	MsgPointsSent        = "Pontos enviados com sucesso."
	MsgDeposited         = "Depósito na caixinha realizado."
	MsgAccountDeleted    = "Conta marcada como deletada."
	MsgInvalidCredential = "Credenciais inválidas."
	MsgInvalidToken      = "Token inválido ou expirado."
	MsgPasswordMismatch  = "As senhas não coincidem."
	MsgAlreadyRegistered = "CPF ou e-mail já cadastrado."
	MsgMissingFields     = "Campos obrigatórios ausentes."
	MsgInvalidAmount     = "Valor inválido."
	MsgInsufficient      = "Saldo insuficiente."
	MsgRecipientNotFound = "Destinatário não encontrado."
	MsgWrongPassword     = "Senha incorreta."
)

// DefaultStartingBalance is credited to every new account.
const DefaultStartingBalance = 100

// Account is a ledger entry.
type Account struct {
	CPF              string
	FullName         string
	Email            string
	PasswordHash     []byte
	salt             []byte
	Confirmed        bool
	Deleted          bool
	NormalBalance    int64
	PiggyBankBalance int64
}

// Option configures a Service.
type Option func(*Service)

// WithStartingBalance changes the balance credited at registration.
func WithStartingBalance(n int64) Option {
	return func(s *Service) { s.startingBalance = n }
}

// WithRequireConfirmation controls whether login requires a confirmed email.
func WithRequireConfirmation(v bool) Option {
	return func(s *Service) { s.requireConfirmation = v }
}

// Service is the fake points service.
type Service struct {
	mu                  sync.Mutex
	accounts            map[string]*Account // by CPF
	byEmail             map[string]string   // email -> CPF
	confirmTokens       map[string]string   // token -> CPF
	secret              []byte
	startingBalance     int64
	requireConfirmation bool
	requests            []string
	router              chi.Router
}

// New builds a Service with an empty ledger.
func New(opts ...Option) *Service {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Service{
		accounts:            make(map[string]*Account),
		byEmail:             make(map[string]string),
		confirmTokens:       make(map[string]string),
		secret:              secret,
		startingBalance:     DefaultStartingBalance,
		requireConfirmation: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.recordRequest)
	r.Post("/cadastro", s.handleRegister)
	r.Get("/confirm-email", s.handleConfirmEmail)
	r.Post("/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/points/send", s.handleSendPoints)
		r.Post("/caixinha/deposit", s.handleDeposit)
		r.Get("/points/saldo", s.handleBalance)
		r.Delete("/account", s.handleDeleteAccount)
	})
	s.router = r
	return s
}

// Start serves a new Service on a loopback listener for the lifetime of t.
func Start(t testing.TB, opts ...Option) (*Service, *httptest.Server) {
	t.Helper()
	s := New(opts...)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Account returns a copy of the account with the given CPF.
func (s *Service) Account(cpf string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[cpf]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Requests returns "METHOD /path" for every request served, in order.
func (s *Service) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Service) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func (s *Service) issueSession(cpf string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cpf,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Service) sessionCPF(tokenString string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

type ctxKey struct{}

func (s *Service) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeMessage(w, http.StatusUnauthorized, MsgInvalidToken)
			return
		}
		cpf, err := s.sessionCPF(raw)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, MsgInvalidToken)
			return
		}
		s.mu.Lock()
		acct, found := s.accounts[cpf]
		active := found && !acct.Deleted
		s.mu.Unlock()
		if !active {
			writeMessage(w, http.StatusUnauthorized, MsgInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithCPF(r.Context(), cpf)))
	})
}

func newConfirmToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
