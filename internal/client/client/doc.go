// Package client is the vaultctl side of the memvault intake API: a gRPC
// client that attaches the access token to every call and maps status
// codes to sentinel errors matched with errors.Is.
package client
