// Package models defines the client-side data carried between the credential
// store, the auth repository and the flows.
package models
