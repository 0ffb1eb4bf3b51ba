// Package model defines the core domain types for the content roster system.
package model

import (
	"encoding/json"
	"strings"
)

// Template is a named, ordered set of parties, each an ordered list of role
// names. Parties is always the normalized nested shape.
type Template struct {
	Name    string     `json:"name"`
	Parties [][]string `json:"parties"`
}

// Flat returns the role names in flattened order: party order, then slot
// order within each party. This is the index space of a SlotMatrix.
func (t *Template) Flat() []string {
	flat := make([]string, 0, t.RoleCount())
	for _, party := range t.Parties {
		flat = append(flat, party...)
	}
	return flat
}

// RoleCount returns the number of role slots across all parties.
func (t *Template) RoleCount() int {
	n := 0
	for _, party := range t.Parties {
		n += len(party)
	}
	return n
}

// TemplateRecord is a template as persisted. Roles holds whichever legacy
// shape was written and must be normalized before use.
type TemplateRecord struct {
	Name  string          `json:"name"`
	Roles json.RawMessage `json:"roles"`
}

// SlotMatrix holds the occupants of each flattened role slot.
type SlotMatrix [][]string

// NewSlotMatrix returns a matrix of n empty slots.
func NewSlotMatrix(n int) SlotMatrix {
	m := make(SlotMatrix, n)
	for i := range m {
		m[i] = []string{}
	}
	return m
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (m SlotMatrix) Clone() SlotMatrix {
	if m == nil {
		return nil
	}
	out := make(SlotMatrix, len(m))
	for i, slot := range m {
		out[i] = append([]string{}, slot...)
	}
	return out
}

// Players returns every occupant in slot order, duplicates included.
func (m SlotMatrix) Players() []string {
	var players []string
	for _, slot := range m {
		players = append(players, slot...)
	}
	return players
}

// Signup is a waitlist entry. UserID is 0 for names added without an identity.
type Signup struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"name"`
	RoleText    string `json:"role"`
}

// MatchesName reports whether the signup's display name equals name, ignoring case.
func (s Signup) MatchesName(name string) bool {
	return strings.EqualFold(s.DisplayName, name)
}

// CloneSignups copies a waitlist.
func CloneSignups(s []Signup) []Signup {
	if s == nil {
		return nil
	}
	return append([]Signup{}, s...)
}

// Content is one scheduled activity built from a template.
type Content struct {
	ID           int64      `json:"id"`
	ExternalRef  string     `json:"external_ref"`
	ChannelRef   string     `json:"channel_ref"`
	Name         string     `json:"name"`
	TemplateName string     `json:"template_name"`
	Description  string     `json:"description"`
	Slots        SlotMatrix `json:"slots"`
	Signups      []Signup   `json:"signups"`
	Revision     string     `json:"revision"`
}

// Clone returns a deep copy of the aggregate.
func (c *Content) Clone() *Content {
	out := *c
	out.Slots = c.Slots.Clone()
	out.Signups = CloneSignups(c.Signups)
	return &out
}

// NewContent is the payload persisted when a content instance is created.
type NewContent struct {
	Name         string
	TemplateName string
	ChannelRef   string
	ExternalRef  string
	Description  string
	Slots        SlotMatrix
}

// ─── Request payloads ─────────────────────────────────────────────────────────

// CreateContentRequest is the payload for creating a content instance.
type CreateContentRequest struct {
	Name         string `json:"name"`
	TemplateName string `json:"template_name"`
	ChannelRef   string `json:"channel_ref"`
	ExternalRef  string `json:"external_ref"`
	Description  string `json:"description"`
}

// SaveTemplateRequest replaces a template. Either Parties or Text is used;
// Text is the comma/newline form typed by a coordinator.
type SaveTemplateRequest struct {
	Parties [][]string `json:"parties,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// SlotRequest targets a role query with a player name.
type SlotRequest struct {
	Role   string `json:"role"`
	Player string `json:"player"`
}

// PlayerRequest names a single player.
type PlayerRequest struct {
	Player string `json:"player"`
}

// SignupRequest is the payload for joining a waitlist.
type SignupRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Choice is one autocomplete suggestion.
type Choice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
