package journey

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/pointsjourney/internal/identity"
)

// Well-known state keys.
const (
	KeyPrimaryCPF        = "primary.cpf"
	KeyPrimaryFullName   = "primary.full_name"
	KeyPrimaryEmail      = "primary.email"
	KeyPrimaryPassword   = "primary.password"
	KeyRecipientCPF      = "recipient.cpf"
	KeyRecipientFullName = "recipient.full_name"
	KeyRecipientEmail    = "recipient.email"
	KeyRecipientPassword = "recipient.password"
	KeyConfirmToken      = "confirm_token"
	KeySessionToken      = "session_token"
	KeyTransferAmount    = "amount.transfer"
	KeyDepositAmount     = "amount.deposit"
	KeyStartingBalance   = "balance.starting"
	KeyExpectedNormal    = "expected.normal_balance"
	KeyExpectedPiggyBank = "expected.piggy_bank_balance"
)


// SeedKeys lists every key SeedState sets.
var SeedKeys = []string{
	KeyPrimaryCPF, KeyPrimaryFullName, KeyPrimaryEmail, KeyPrimaryPassword,
	KeyRecipientCPF, KeyRecipientFullName, KeyRecipientEmail, KeyRecipientPassword,
	KeyTransferAmount, KeyDepositAmount, KeyStartingBalance,
	KeyExpectedNormal, KeyExpectedPiggyBank,
}

var templatePattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.]+)\}`)

// Amounts drives the ledger part of the journey.
type Amounts struct {
	StartingBalance int64
	Transfer        int64
	Deposit         int64
}

// DefaultAmounts matches the service's documented starting balance of 100,
// a transfer of 50 and a piggy bank deposit of 30.
func DefaultAmounts() Amounts {
	return Amounts{StartingBalance: 100, Transfer: 50, Deposit: 30}
}

// ExpectedNormal is the spendable balance left after the transfer and deposit.
func (a Amounts) ExpectedNormal() int64 {
	return a.StartingBalance - a.Transfer - a.Deposit
}

// ExpectedPiggyBank is the reserved balance after the deposit.
func (a Amounts) ExpectedPiggyBank() int64 {
	return a.Deposit
}

// State carries values between steps of one run. It is owned by a single
// runner and is not safe for concurrent use.
type State struct {
	values map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// SeedState returns a state holding both identities and the amounts.
func SeedState(primary, recipient identity.Identity, amounts Amounts) *State {
	s := NewState()
	seed := map[string]any{
		KeyPrimaryCPF:        primary.CPF,
		KeyPrimaryFullName:   primary.FullName,
		KeyPrimaryEmail:      primary.Email,
		KeyPrimaryPassword:   primary.Password,
		KeyRecipientCPF:      recipient.CPF,
		KeyRecipientFullName: recipient.FullName,
		KeyRecipientEmail:    recipient.Email,
		KeyRecipientPassword: recipient.Password,
		KeyTransferAmount:    amounts.Transfer,
		KeyDepositAmount:     amounts.Deposit,
		KeyStartingBalance:   amounts.StartingBalance,
		KeyExpectedNormal:    amounts.ExpectedNormal(),
		KeyExpectedPiggyBank: amounts.ExpectedPiggyBank(),
	}
	for k, v := range seed {
		s.Set(k, v)
	}
	return s
}

// Set stores v under key.
func (s *State) Set(key string, v any) {
	s.values[key] = v
}

// String returns the value under key formatted as a string, or "" if absent.
func (s *State) String(key string) string {
	v, ok := s.values[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Missing returns the keys that are absent or hold an empty value, sorted.
func (s *State) Missing(keys []string) []string {
	var missing []string
	for _, k := range keys {
		v, ok := s.values[k]
		if !ok || isEmpty(v) {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Keys returns every key currently set, sorted.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve substitutes ${key} templates in v, walking maps and slices.
func (s *State) Resolve(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return s.resolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			r, err := s.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := s.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveMap is Resolve for the common map case. A nil map resolves to an
// empty one.
func (s *State) ResolveMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	r, err := s.Resolve(m)
	if err != nil {
		return nil, err
	}
	return r.(map[string]any), nil
}

func (s *State) resolveString(str string) (any, error) {
	// A lone template keeps the referenced value's type.
	if m := templatePattern.FindStringSubmatchIndex(str); m != nil && m[0] == 0 && m[1] == len(str) {
		key := str[m[2]:m[3]]
		v, ok := s.values[key]
		if !ok {
			return nil, fmt.Errorf("unresolved template key %q", key)
		}
		return v, nil
	}

	var missing string
	out := templatePattern.ReplaceAllStringFunc(str, func(match string) string {
		key := match[2 : len(match)-1]
		if _, ok := s.values[key]; !ok {
			if missing == "" {
				missing = key
			}
			return match
		}
		return s.String(key)
	})
	if missing != "" {
		return nil, fmt.Errorf("unresolved template key %q", missing)
	}
	return out, nil
}

// templateKeys returns the template keys referenced anywhere in v.
func templateKeys(v any) []string {
	seen := map[string]bool{}
	collectTemplateKeys(v, seen)
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collectTemplateKeys(v any, seen map[string]bool) {
	switch val := v.(type) {
	case string:
		for _, m := range templatePattern.FindAllStringSubmatch(val, -1) {
			seen[m[1]] = true
		}
	case map[string]any:
		for _, elem := range val {
			collectTemplateKeys(elem, seen)
		}
	case []any:
		for _, elem := range val {
			collectTemplateKeys(elem, seen)
		}
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
