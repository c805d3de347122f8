package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// callArgs mirrors the argument names the call functions read.
var callArgs = map[string][]string{
	CallRegister:         {"cpf", "full_name", "email", "password", "confirmPassword"},
	CallConfirmEmail:     {"token"},
	CallLogin:            {"email", "password"},
	CallSendPoints:       {"recipientCpf", "amount"},
	CallDepositPiggyBank: {"amount"},
	CallBalance:          nil,
	CallDeleteAccount:    {"password"},
}

func oneStepYAML(t *testing.T, call string, args map[string]any) []byte {
	t.Helper()
	s := &Scenario{
		Name:        "n",
		Description: "d",
		Steps: []Step{{
			Name:   "s",
			Call:   call,
			Args:   args,
			Expect: Expect{Status: 200},
		}},
	}
	data, err := yaml.Marshal(s)
	require.NoError(t, err)
	return data
}

func TestCheckSchema_CoversEveryCall(t *testing.T) {
	require.ElementsMatch(t, CallNames(), keysOf(callArgs))

	for _, call := range CallNames() {
		t.Run(call, func(t *testing.T) {
			args := map[string]any{}
			for _, name := range callArgs[call] {
				args[name] = "x"
			}
			require.NoError(t, checkSchema(oneStepYAML(t, call, args)))

			for _, missing := range callArgs[call] {
				partial := map[string]any{}
				for k, v := range args {
					if k != missing {
						partial[k] = v
					}
				}
				err := checkSchema(oneStepYAML(t, call, partial))
				require.Error(t, err, "without %s", missing)
				assert.Contains(t, err.Error(), "steps[0].args."+missing+": ")
			}
		})
	}
}

func TestCheckSchema_StatusRange(t *testing.T) {
	for _, status := range []int{99, 600} {
		s := &Scenario{Name: "n", Description: "d", Steps: []Step{{
			Name:   "s",
			Call:   CallBalance,
			Expect: Expect{Status: status},
		}}}
		data, err := yaml.Marshal(s)
		require.NoError(t, err)

		err = checkSchema(data)
		require.Error(t, err, "status %d", status)
		var se *ScenarioError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Msg, "steps[0].expect.status: ")
	}
}

func TestCheckSchema_DefaultScenario(t *testing.T) {
	require.NoError(t, checkSchema(defaultScenarioYAML))
}

func TestSchemaPath(t *testing.T) {
	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"steps", "0", "call"}, "steps[0].call"},
		{[]string{"#Scenario", "steps", "12", "args", "cpf"}, "steps[12].args.cpf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, schemaPath(tt.path))
	}
}

func keysOf(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
