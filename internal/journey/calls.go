package journey

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/roach88/pointsjourney/internal/bankapi"
)

// Call names accepted in a step's call field.
const (
	CallRegister         = "register"
	CallConfirmEmail     = "confirm_email"
	CallLogin            = "login"
	CallSendPoints       = "send_points"
	CallDepositPiggyBank = "deposit_piggy_bank"
	CallBalance          = "balance"
	CallDeleteAccount    = "delete_account"
)

type callFunc func(ctx context.Context, c *bankapi.Client, token string, args map[string]any) (*bankapi.Response, error)

// callSpec describes one bank operation a step can invoke.
type callSpec struct {
	fn         callFunc
	authorized bool // needs session_token
}

var calls = map[string]callSpec{
	CallRegister:         {fn: callRegister},
	CallConfirmEmail:     {fn: callConfirmEmail},
	CallLogin:            {fn: callLogin},
	CallSendPoints:       {fn: callSendPoints, authorized: true},
	CallDepositPiggyBank: {fn: callDepositPiggyBank, authorized: true},
	CallBalance:          {fn: callBalance, authorized: true},
	CallDeleteAccount:    {fn: callDeleteAccount, authorized: true},
}

// CallNames returns the supported call names, sorted.
func CallNames() []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func callRegister(ctx context.Context, c *bankapi.Client, _ string, args map[string]any) (*bankapi.Response, error) {
	req := bankapi.RegisterRequest{}
	var err error
	if req.CPF, err = argString(args, "cpf"); err != nil {
		return nil, err
	}
	if req.FullName, err = argString(args, "full_name"); err != nil {
		return nil, err
	}
	if req.Email, err = argString(args, "email"); err != nil {
		return nil, err
	}
	if req.Password, err = argString(args, "password"); err != nil {
		return nil, err
	}
	if req.ConfirmPassword, err = argString(args, "confirmPassword"); err != nil {
		return nil, err
	}
	return c.Register(ctx, req)
}

func callConfirmEmail(ctx context.Context, c *bankapi.Client, _ string, args map[string]any) (*bankapi.Response, error) {
	token, err := argString(args, "token")
	if err != nil {
		return nil, err
	}
	return c.ConfirmEmail(ctx, token)
}

func callLogin(ctx context.Context, c *bankapi.Client, _ string, args map[string]any) (*bankapi.Response, error) {
	email, err := argString(args, "email")
	if err != nil {
		return nil, err
	}
	password, err := argString(args, "password")
	if err != nil {
		return nil, err
	}
	return c.Login(ctx, bankapi.LoginRequest{Email: email, Password: password})
}

func callSendPoints(ctx context.Context, c *bankapi.Client, token string, args map[string]any) (*bankapi.Response, error) {
	recipient, err := argString(args, "recipientCpf")
	if err != nil {
		return nil, err
	}
	amount, err := argInt(args, "amount")
	if err != nil {
		return nil, err
	}
	return c.SendPoints(ctx, token, bankapi.SendPointsRequest{RecipientCPF: recipient, Amount: amount})
}

func callDepositPiggyBank(ctx context.Context, c *bankapi.Client, token string, args map[string]any) (*bankapi.Response, error) {
	amount, err := argInt(args, "amount")
	if err != nil {
		return nil, err
	}
	return c.DepositPiggyBank(ctx, token, bankapi.DepositRequest{Amount: amount})
}

func callBalance(ctx context.Context, c *bankapi.Client, token string, _ map[string]any) (*bankapi.Response, error) {
	return c.Balance(ctx, token)
}

func callDeleteAccount(ctx context.Context, c *bankapi.Client, token string, args map[string]any) (*bankapi.Response, error) {
	password, err := argString(args, "password")
	if err != nil {
		return nil, err
	}
	return c.DeleteAccount(ctx, token, bankapi.DeleteAccountRequest{Password: password})
}

// argString reads a string argument. Numbers are formatted so a CPF written
// unquoted in YAML still works.
func argString(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("argument %q is required", name)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case int, int64, json.Number:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("argument %q: expected string, got %T", name, v)
	}
}

// argInt reads an integral argument.
func argInt(args map[string]any, name string) (int64, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("argument %q is required", name)
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("argument %q: expected integer, got %v (%T)", name, v, v)
	}
	return n, nil
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int64(val), true
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
