// Package cli implements the vaultctl command tree on top of cobra:
//
//	token        mint an access token with the server secret
//	ping         check the server is reachable
//	submit       send a submission as the token's identity
//	run-pass     run one reconciliation pass now (operator)
//	register     pre-register a unit and its owner (operator)
//	seed-ledger  rebuild ledgers from a CSV of past submissions (operator)
//
// Global flags -a/--addr, -k/--token and --timeout override values loaded
// by the config package.
package cli
