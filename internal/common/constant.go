// Package common contains shared constants, sentinel errors and the
// authentication failure taxonomy used across sessionkeeper components.
package common

// AuthorizationHeaderName is the HTTP header (and lowercase gRPC metadata key)
// that carries the bearer credential on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the authorization header value.
const BearerPrefix = "Bearer "

// RequestIDHeaderName correlates a remote call with client-side log lines.
const RequestIDHeaderName = "X-Request-ID"

// CredentialNamespace is the fixed namespace the credential record lives under
// in the local metadata store.
const CredentialNamespace = "session"
