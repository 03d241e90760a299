// Package common contains shared constants and sentinel errors used across
// the task service components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the prefix expected in front of the token value.
const BearerScheme = "Bearer "
