package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the access/refresh token pair of an authenticated user.
// Both fields are empty or both are set.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether no credential is held.
func (c Credentials) Empty() bool {
	return c.Access == "" && c.Refresh == ""
}

// Complete reports whether both tokens are present.
func (c Credentials) Complete() bool {
	return c.Access != "" && c.Refresh != ""
}

// AccessExpiry reads the exp claim of the access token. The signature is
// not checked; the result is for display only.
func (c Credentials) AccessExpiry() (time.Time, error) {
	if c.Access == "" {
		return time.Time{}, errors.New("no access token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Access, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("access token has no expiry")
	}
	return exp.Time, nil
}
