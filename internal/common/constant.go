// Package common contains shared constants and errors used across
// vidtube components.
package common

const (
	// AccessTokenCookieName is the HTTP-only cookie carrying the access token.
	AccessTokenCookieName = "accessToken"

	// RefreshTokenCookieName is the HTTP-only cookie carrying the refresh token.
	RefreshTokenCookieName = "refreshToken"

	// AuthorizationHeaderName is the header checked when no access token cookie is present.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "
)
