//
// Tencent is pleased to support the open source community by making trpc-realtime-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-realtime-go is licensed under the Apache License Version 2.0.
//
//

// Package session maintains per-connection orchestration state: metadata,
// the deduplicated transcript, the active agent and the single in-flight
// response flag.
package session

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"trpc.group/trpc-go/trpc-realtime-go/internal/identifier"
	"trpc.group/trpc-go/trpc-realtime-go/tool"
)

// Well-known metadata keys. Handlers and the transfer coordinator read and
// write metadata through these names; anything else is carried opaquely.
const (
	// KeySessionID identifies the conversation.
	KeySessionID = "sessionId"
	// KeyChatbotID identifies the deployed widget.
	KeyChatbotID = "chatbotId"
	// KeyOrgID identifies the owning organization.
	KeyOrgID = "orgId"
	// KeyIsVerified records whether the visitor passed phone verification.
	KeyIsVerified = "isVerified"
	// KeyHasScheduled records whether the visitor booked an appointment.
	KeyHasScheduled = "hasScheduled"
	// KeyActiveProject is the project the conversation currently centers on.
	KeyActiveProject = "activeProject"
	// KeyProjectIDs lists the projects the widget may discuss.
	KeyProjectIDs = "projectIds"
	// KeyCameFrom names the agent the session transferred in from.
	KeyCameFrom = "cameFrom"
	// KeyLanguage is the BCP 47 conversation language tag.
	KeyLanguage = "language"
	// KeyCustomerName is the visitor's self-reported name.
	KeyCustomerName = "customerName"
	// KeyPhoneNumber is the visitor's normalized phone number.
	KeyPhoneNumber = "phoneNumber"
	// KeyFlowContext tells the destination agent why it received the session.
	KeyFlowContext = "flowContext"
	// KeyQuestionCount counts user questions answered before verification.
	KeyQuestionCount = "questionCount"
	// KeyPropertyToSchedule is the property a visit is being booked for.
	KeyPropertyToSchedule = "propertyIdToSchedule"
	// KeySelectedDate is the visit date picked in the scheduling form.
	KeySelectedDate = "selectedDate"
	// KeySelectedTime is the visit time picked in the scheduling form.
	KeySelectedTime = "selectedTime"
)

// knownKeys are the fields tool results may write back into session
// metadata. Anything outside this set stays in the result payload only.
var knownKeys = map[string]bool{
	KeyIsVerified:         true,
	KeyHasScheduled:       true,
	KeyActiveProject:      true,
	KeyProjectIDs:         true,
	KeyLanguage:           true,
	KeyCustomerName:       true,
	KeyPhoneNumber:        true,
	KeyFlowContext:        true,
	KeyQuestionCount:      true,
	KeyPropertyToSchedule: true,
	KeySelectedDate:       true,
	KeySelectedTime:       true,
}

// IsKnownKey reports whether a canonical key may be written back to
// metadata by a tool result. Identity keys are deliberately excluded;
// they only change through bootstrap and transfer validation.
func IsKnownKey(k string) bool { return knownKeys[k] }

// keyAliases maps the snake_case field names tool handlers emit to the
// canonical metadata keys. Handlers speak the wire convention of their
// schemas; metadata keeps one spelling.
var keyAliases = map[string]string{
	"is_verified":    KeyIsVerified,
	"has_scheduled":  KeyHasScheduled,
	"active_project": KeyActiveProject,
	"project_ids":    KeyProjectIDs,
	"came_from":      KeyCameFrom,
	"customer_name":  KeyCustomerName,
	"phone_number":   KeyPhoneNumber,
	"flow_context":   KeyFlowContext,
}

// Canonicalize rewrites aliased keys in m to their canonical names, in
// place. A canonical key already present wins over its alias.
func Canonicalize(m Metadata) {
	for alias, canonical := range keyAliases {
		v, ok := m[alias]
		if !ok {
			continue
		}
		delete(m, alias)
		if _, exists := m[canonical]; !exists {
			m[canonical] = v
		}
	}
}

// ActiveProjectNone is the sentinel used before any project is selected.
const ActiveProjectNone = "N/A"

// ErrIdentityConflict reports that two of the three session identifiers
// coincide. The session is unusable once this is observed.
var ErrIdentityConflict = errors.New("session: identity conflict")

// Metadata is the mutable key-value state attached to a session. Values are
// JSON-shaped: strings, bools, numbers, []any, map[string]any.
type Metadata map[string]any

// Clone returns a shallow copy one level deep; slice and map values are
// copied so callers can hold a snapshot while the live map mutates.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		switch tv := v.(type) {
		case []any:
			out[k] = append([]any(nil), tv...)
		case []string:
			out[k] = append([]string(nil), tv...)
		case map[string]any:
			inner := make(map[string]any, len(tv))
			for ik, iv := range tv {
				inner[ik] = iv
			}
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}

// String returns the value under key if it is a non-empty string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the value under key if it is a bool.
func (m Metadata) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// SessionID returns the conversation identifier.
func (m Metadata) SessionID() string { return m.String(KeySessionID) }

// ChatbotID returns the widget identifier.
func (m Metadata) ChatbotID() string { return m.String(KeyChatbotID) }

// OrgID returns the organization identifier.
func (m Metadata) OrgID() string { return m.String(KeyOrgID) }

// Verified reports whether the visitor passed phone verification.
func (m Metadata) Verified() bool { return m.Bool(KeyIsVerified) }

// ActiveProject returns the current project, or ActiveProjectNone.
func (m Metadata) ActiveProject() string {
	if p := m.String(KeyActiveProject); p != "" {
		return p
	}
	return ActiveProjectNone
}

// ProjectIDs returns the project list, tolerating both the decoded-JSON
// []any shape and a native []string.
func (m Metadata) ProjectIDs() []string {
	switch v := m[KeyProjectIDs].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Merge layers the given maps over m, later arguments winning, and returns
// the result as a new map. Entries overwrite unconditionally; a transfer
// tool that explicitly clears a field clears it. m itself is not mutated.
func Merge(layers ...Metadata) Metadata {
	out := Metadata{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// StripTransferControls removes the tool control fields from m in place so
// dispatch plumbing never leaks into durable session state.
func StripTransferControls(m Metadata) {
	for _, k := range tool.ControlKeys() {
		delete(m, k)
	}
}

// ValidateIdentity checks that the session, chatbot and org identifiers are
// pairwise distinct. Coinciding identifiers mean two contexts merged and
// the session must be failed rather than limped along.
func ValidateIdentity(m Metadata) error {
	sid, cid, oid := m.SessionID(), m.ChatbotID(), m.OrgID()
	pairs := [][2]string{{sid, cid}, {sid, oid}, {cid, oid}}
	for _, p := range pairs {
		if p[0] != "" && p[0] == p[1] {
			return fmt.Errorf("%w: %q appears twice", ErrIdentityConflict, p[0])
		}
	}
	return nil
}

// Bootstrap builds the initial metadata for a connection. Each caller
// supplied identifier is kept when well formed, otherwise replaced by the
// stored value or a freshly generated one, then the trio is cross-checked.
func Bootstrap(sessionID, chatbotID, orgID string, stored Metadata) (Metadata, error) {
	m := stored.Clone()
	m[KeySessionID] = identifier.Resolve(sessionID, stored.SessionID())
	m[KeyChatbotID] = identifier.Resolve(chatbotID, stored.ChatbotID())
	m[KeyOrgID] = identifier.Resolve(orgID, stored.OrgID())
	if _, ok := m[KeyActiveProject]; !ok {
		m[KeyActiveProject] = ActiveProjectNone
	}
	if err := ValidateIdentity(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NormalizeLanguage canonicalizes a BCP 47 tag, returning English for
// anything unparseable so the session always has a usable language.
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return language.English.String()
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return language.English.String()
	}
	return parsed.String()
}
