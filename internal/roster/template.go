// Package roster is the slot assignment engine: template normalization,
// slot matrix mutation, waitlist reconciliation, content reference
// resolution and fixed-width table rendering.
//
// Everything here is pure and operates on values handed in by the caller.
// Loading, locking and persisting belong to the service layer.
package roster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// Normalize converts a decoded template payload into parties and the
// flattened role list. Two historical shapes are accepted:
//
//	["Tank", "Healer"]                     one implicit party
//	[["Tank", "Healer"], ["DPS"]]          explicit parties
//
// In both, a role may be a string or a record carrying a "name" field.
// The first element decides the shape.
func Normalize(raw any) ([][]string, []string, error) {
	if raw == nil {
		return [][]string{}, []string{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: template roles must be a list, got %T", model.ErrDataCorruption, raw)
	}
	if len(items) == 0 {
		return [][]string{}, []string{}, nil
	}

	groups := [][]any{items}
	if _, nested := items[0].([]any); nested {
		groups = make([][]any, 0, len(items))
		for i, item := range items {
			party, ok := item.([]any)
			if !ok {
				return nil, nil, fmt.Errorf("%w: party %d is %T, not a list", model.ErrDataCorruption, i+1, item)
			}
			groups = append(groups, party)
		}
	}

	parties := make([][]string, 0, len(groups))
	var flat []string
	for p, group := range groups {
		party := make([]string, 0, len(group))
		for r, role := range group {
			name, err := roleName(role)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: party %d role %d: %v", model.ErrDataCorruption, p+1, r+1, err)
			}
			party = append(party, name)
			flat = append(flat, name)
		}
		parties = append(parties, party)
	}
	if flat == nil {
		flat = []string{}
	}
	return parties, flat, nil
}

func roleName(v any) (string, error) {
	switch r := v.(type) {
	case string:
		return r, nil
	case map[string]any:
		return recordName(r["name"])
	case map[any]any:
		return recordName(r["name"])
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(r), nil
	case bool:
		return strconv.FormatBool(r), nil
	default:
		return "", fmt.Errorf("unsupported role %T", v)
	}
}

func recordName(v any) (string, error) {
	name, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("role record has no string name")
	}
	return name, nil
}

// DecodeRoles parses stored role JSON and normalizes it.
func DecodeRoles(data []byte) ([][]string, []string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return [][]string{}, []string{}, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: decode template roles: %v", model.ErrDataCorruption, err)
	}
	return Normalize(raw)
}

// DecodeTemplate turns a stored record into a normalized template.
func DecodeTemplate(rec *model.TemplateRecord) (*model.Template, error) {
	parties, _, err := DecodeRoles(rec.Roles)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", rec.Name, err)
	}
	return &model.Template{Name: rec.Name, Parties: parties}, nil
}

// ParseTemplateText reads the coordinator form: one party per line, roles
// separated by commas. Blank lines and empty roles are dropped.
func ParseTemplateText(text string) ([][]string, error) {
	var parties [][]string
	for _, line := range strings.Split(text, "\n") {
		var party []string
		for _, role := range strings.Split(line, ",") {
			if role = strings.TrimSpace(role); role != "" {
				party = append(party, role)
			}
		}
		if len(party) > 0 {
			parties = append(parties, party)
		}
	}
	if len(parties) == 0 {
		return nil, fmt.Errorf("%w: template has no roles", model.ErrInvalid)
	}
	return parties, nil
}

// FormatTemplateText is the inverse of ParseTemplateText. Party grouping
// survives the round trip.
func FormatTemplateText(parties [][]string) string {
	lines := make([]string, 0, len(parties))
	for _, party := range parties {
		lines = append(lines, strings.Join(party, ", "))
	}
	return strings.Join(lines, "\n")
}

// CleanParties trims role names and drops empty roles and parties.
func CleanParties(parties [][]string) ([][]string, error) {
	var out [][]string
	for _, party := range parties {
		var clean []string
		for _, role := range party {
			if role = strings.TrimSpace(role); role != "" {
				clean = append(clean, role)
			}
		}
		if len(clean) > 0 {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: template has no roles", model.ErrInvalid)
	}
	return out, nil
}
