//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package identifier centralizes validation of session, org and chatbot
// identifiers, and the fallback rule for untrusted caller-supplied values.
package identifier

import (
	"regexp"

	"github.com/google/uuid"
)

// Canonical identifier forms: 36-character hyphenated hex or 32-character hex.
var (
	hyphenated = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	plain      = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// Valid reports whether s is a canonical identifier string.
func Valid(s string) bool {
	return hyphenated.MatchString(s) || plain.MatchString(s)
}

// Resolve picks the identifier to trust: a valid candidate wins, then a
// valid stored value, then a freshly generated one.
func Resolve(candidate, stored string) string {
	if Valid(candidate) {
		return candidate
	}
	if Valid(stored) {
		return stored
	}
	return Generate()
}

// Generate returns a new canonical identifier.
func Generate() string {
	return uuid.New().String()
}
