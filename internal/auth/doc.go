// Package auth provides HTTP middleware that enforces API key authentication
// on mutating pingwatch endpoints.
package auth
