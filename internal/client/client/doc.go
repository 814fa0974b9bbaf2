// Package client is the network capability the auth repository talks
// through, plus local database bootstrap.
//
// # Overview
//
//  1. A transport-agnostic contract (Client) for the remote authentication
//     service: Register, Login, Verify, Profile and Logout. Every method
//     returns the raw outcome as a Reply (status code + body) so that status
//     classification stays in one place, the auth repository.
//  2. HTTPClient: JSON over HTTP with an injectable Doer, bearer
//     authorization and a per-call X-Request-ID.
//  3. GRPCClient: the same contract over gRPC using structpb messages on
//     service sessionkeeper.auth.v1.AuthService. Status codes are mapped to
//     their HTTP equivalents.
//  4. InitDatabase/RunMigrations: opens the local SQLite database and
//     applies the embedded goose migrations.
//
// # Error Handling
//
// A non-nil error from a Client method always means the call did not reach
// a server response (timeout, DNS, refused connection, cancelled context).
// Such errors wrap ErrUnavailable. Any server response, including 4xx/5xx,
// is returned as a Reply with a nil error.
package client
