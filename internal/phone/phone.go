//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package phone normalizes and validates caller-supplied phone numbers.
package phone

import (
	"regexp"
	"strings"
)

// e164 is the E.164 shape: plus sign, then up to 15 digits with no leading zero.
var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Normalize strips formatting characters and coerces a number missing its
// leading "+" into E.164-like form. An empty input stays empty.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// Valid reports whether s is a well-formed E.164 number.
func Valid(s string) bool {
	return e164.MatchString(s)
}
