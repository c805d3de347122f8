package journey

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScenario(t *testing.T) {
	s, err := DefaultScenario()
	require.NoError(t, err)

	assert.Equal(t, "rethink_bank_user_journey", s.Name)
	require.Len(t, s.Steps, 9)

	var callsInOrder []string
	for _, step := range s.Steps {
		callsInOrder = append(callsInOrder, step.Call)
	}
	assert.Equal(t, []string{
		CallRegister, CallRegister, CallConfirmEmail, CallLogin, CallSendPoints,
		CallDepositPiggyBank, CallBalance, CallDeleteAccount, CallLogin,
	}, callsInOrder)

	assert.Equal(t, 201, s.Steps[0].Expect.Status)
	assert.Equal(t, "Cadastro realizado com sucesso.", s.Steps[0].Expect.Message)
	assert.Equal(t, map[string]string{"confirmToken": KeyConfirmToken}, s.Steps[0].Capture)
	assert.Empty(t, s.Steps[1].Capture, "recipient registration retains nothing")
	assert.Equal(t, "E-mail confirmado com sucesso.", s.Steps[2].Expect.Body)
	assert.Equal(t, map[string]string{"token": KeySessionToken}, s.Steps[3].Capture)
	assert.Equal(t, "Depósito na caixinha realizado.", s.Steps[5].Expect.Message)
	assert.Equal(t, 401, s.Steps[8].Expect.Status)
	assert.Equal(t, "Credenciais inválidas.", s.Steps[8].Expect.Message)
}

func TestRequiredKeys(t *testing.T) {
	s, err := DefaultScenario()
	require.NoError(t, err)

	assert.Equal(t, []string{KeyConfirmToken}, requiredKeys(&s.Steps[2]))
	assert.Equal(t, []string{KeyTransferAmount, KeyRecipientCPF, KeySessionToken}, requiredKeys(&s.Steps[4]))
	assert.Equal(t, []string{KeyExpectedNormal, KeyExpectedPiggyBank, KeySessionToken}, requiredKeys(&s.Steps[6]))

	assert.Equal(t, map[string]string{
		KeyConfirmToken: "register_primary",
		KeySessionToken: "login",
	}, s.producers())
}

func TestLoadScenario_File(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "unconfirmed_login.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "unconfirmed_login", s.Name)
	assert.Len(t, s.Steps, 2)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "typo.yaml"))
	require.Error(t, err)

	var se *ScenarioError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "expects")
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseScenario_Invalid(t *testing.T) {
	const loginArgs = `
    args:
      email: "${primary.email}"
      password: "${primary.password}"`

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: []\n",
			want: "name: ",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: []\n",
			want: "description: ",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nsteps: []\n",
			want: "invalid scenario: steps",
		},
		{
			name: "unknown call",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: withdraw\n    expect: {status: 200}\n",
			want: "steps[0].call: ",
		},
		{
			name: "missing status",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: login" + loginArgs + "\n",
			want: "steps[0].expect.status: ",
		},
		{
			name: "missing argument",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: login\n    args: {email: a}\n    expect: {status: 200}\n",
			want: "steps[0].args.password: ",
		},
		{
			name: "extra argument",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: balance\n    args: {amount: 1}\n    expect: {status: 200}\n",
			want: "steps[0].args.amount: ",
		},
		{
			name: "session token never captured",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: balance\n    expect: {status: 200}\n",
			want: `state key "session_token"`,
		},
		{
			name: "capture used before produced",
			yaml: `name: n
description: d
steps:
  - name: confirm
    call: confirm_email
    args: {token: "${confirm_token}"}
    expect: {status: 200}
`,
			want: `steps[0]: state key "confirm_token"`,
		},
		{
			name: "duplicate step names",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: login" + loginArgs + "\n    expect: {status: 200}\n  - name: s\n    call: login" + loginArgs + "\n    expect: {status: 200}\n",
			want: `duplicate step name "s"`,
		},
		{
			name: "bad capture target",
			yaml: "name: n\ndescription: d\nsteps:\n  - name: s\n    call: login" + loginArgs + "\n    expect: {status: 200}\n    capture: {token: \"not a key\"}\n",
			want: "steps[0].capture.token: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			var se *ScenarioError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_ExplicitRequires(t *testing.T) {
	yaml := `name: n
description: d
steps:
  - name: s
    call: login
    args: {email: a@test.com, password: pw}
    requires: [mystery]
    expect: {status: 200}
`
	_, err := ParseScenario([]byte(yaml))
	assert.ErrorContains(t, err, `state key "mystery"`)
}

func TestCallNames(t *testing.T) {
	assert.Equal(t, []string{
		"balance", "confirm_email", "delete_account", "deposit_piggy_bank",
		"login", "register", "send_points",
	}, CallNames())
}
