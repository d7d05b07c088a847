// Package common contains shared constants and sentinel errors used across
// accountd components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the bearer
// token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the expected authorization scheme prefix.
const BearerScheme = "Bearer"

// LevelStandard is the access level assigned to newly registered users.
const LevelStandard = "standard"
