// Package bankapi is a typed HTTP client for the Rethink Bank points API.
//
// Every operation returns a *Response for any HTTP status the service sends
// back, 2xx or not. A non-nil error means no response was received at all
// (DNS failure, refused connection, cancelled context) and is always a
// *TransportError. Callers assert on Response.Status and the decoded body
// instead of branching on errors, which keeps failure contracts such as
// "401 after account deletion" testable.
//
// # Endpoints
//
//	POST   /cadastro           Register
//	GET    /confirm-email      ConfirmEmail
//	POST   /login              Login
//	POST   /points/send        SendPoints        (bearer)
//	POST   /caixinha/deposit   DepositPiggyBank  (bearer)
//	GET    /points/saldo       Balance           (bearer)
//	DELETE /account            DeleteAccount     (bearer)
package bankapi
