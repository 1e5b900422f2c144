// Package common contains shared constants and sentinel errors used across
// PromptKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// FreeTierQuota is the number of active prompts a free account may edit.
const FreeTierQuota = 5

// MaxBatchSize bounds the number of operations committed to the remote
// authority in one request.
const MaxBatchSize = 400
