// Package journey runs ordered, dependent HTTP scenarios against the points
// service and checks every response against an expected contract.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	steps:
//	  - name: login
//	    call: login
//	    args:
//	      email: "${primary.email}"
//	      password: "${primary.password}"
//	    expect:
//	      status: 200
//	      present: [token]
//	    capture:
//	      token: session_token
//
// # Calls
//
// The call field names one bank operation:
//
//   - register: POST /cadastro (cpf, full_name, email, password, confirmPassword)
//   - confirm_email: GET /confirm-email (token)
//   - login: POST /login (email, password)
//   - send_points: POST /points/send (recipientCpf, amount), authorized
//   - deposit_piggy_bank: POST /caixinha/deposit (amount), authorized
//   - balance: GET /points/saldo, authorized
//   - delete_account: DELETE /account (password), authorized
//
// # State
//
// Values flow between steps through an explicit State. The runner seeds it
// with both identities and the configured amounts; capture clauses add
// response fields under new keys. A string of the form "${key}" is replaced
// by the value under key, keeping its type when the template is the whole
// string.
//
// Before a step runs, every key it depends on must be present: keys named in
// requires, keys referenced by templates, and session_token for authorized
// calls. A missing key fails the step with a DependencyError naming the step
// that should have produced it, and the remaining steps are skipped.
//
// # Expectations
//
//   - status: exact HTTP status code (required)
//   - message: exact value of the "message" field
//   - body: exact body text (JSON string bodies are unquoted)
//   - fields: exact values of top-level fields; numbers compare by value
//   - present: fields that must exist and be non-empty
//
// Text comparisons apply Unicode NFC normalization to both sides.
//
// # Usage
//
//	scenario, err := journey.DefaultScenario()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := journey.NewRunner(client, journey.Options{})
//	result, err := runner.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package journey
