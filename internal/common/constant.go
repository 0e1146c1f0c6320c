// Package common contains shared constants and sentinel errors used across
// memvault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// OperatorRole is the token role allowed to run passes and manage units.
const OperatorRole = "operator"

// MemberRole is the token role of a member submitting documents.
const MemberRole = "member"
