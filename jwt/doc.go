// Package jwt issues and verifies practitioner bearer tokens, and lets clients read a
// token's expiry without holding the verification key.
package jwt
