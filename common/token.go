package common

import "github.com/segmentio/ksuid"

// TokenSource generates opaque unique tokens for lock credentials and
// reservation identifiers.
type TokenSource func() string

// KSUIDTokenSource returns a TokenSource producing K-sortable unique IDs.
func KSUIDTokenSource() TokenSource {
	return func() string {
		return ksuid.New().String()
	}
}
