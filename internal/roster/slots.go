package roster

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// ClearSentinel as a player name means "empty the matching slots".
const ClearSentinel = "-"

// Placement reports the outcome of a successful Assign or DirectRegister.
type Placement struct {
	// Cleared is set on the bulk clear path: number of slots emptied.
	Cleared int `json:"cleared"`
	// Index and Role identify the slot that was filled; Index is -1 when
	// nothing was placed.
	Index  int    `json:"index"`
	Role   string `json:"role,omitempty"`
	Player string `json:"player,omitempty"`
	// Graduated counts waitlist entries removed because the player was placed.
	Graduated int `json:"graduated"`
}

// Placed reports whether a player was put into a slot.
func (p Placement) Placed() bool { return p.Index >= 0 }

// FindMatches returns every flattened index whose role name contains query,
// case-insensitively, in ascending order.
func FindMatches(flat []string, query string) ([]int, error) {
	q := strings.ToLower(query)
	var matches []int
	for i, role := range flat {
		if strings.Contains(strings.ToLower(role), q) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", model.ErrNoMatch, query)
	}
	return matches, nil
}

// IsAssigned reports whether player occupies any slot, ignoring case.
func IsAssigned(m model.SlotMatrix, player string) bool {
	for _, slot := range m {
		for _, p := range slot {
			if strings.EqualFold(p, player) {
				return true
			}
		}
	}
	return false
}

// Assign is the "edit table" entry point. An empty player or the clear
// sentinel empties every occupied matching slot. Otherwise the player goes
// into the first empty matching slot, provided they hold no slot yet.
//
// m is mutated in place; callers pass a copy.
func Assign(m model.SlotMatrix, flat []string, query, player string) (Placement, error) {
	player = strings.TrimSpace(player)
	if player == "" || player == ClearSentinel {
		return clearMatches(m, flat, query), nil
	}
	return place(m, flat, query, player)
}

// DirectRegister is the "add to table" entry point: same placement as
// Assign without the clear path.
func DirectRegister(m model.SlotMatrix, flat []string, query, player string) (Placement, error) {
	player = strings.TrimSpace(player)
	if player == "" || player == ClearSentinel {
		return Placement{Index: -1}, fmt.Errorf("%w: player name is required", model.ErrInvalid)
	}
	return place(m, flat, query, player)
}

func place(m model.SlotMatrix, flat []string, query, player string) (Placement, error) {
	if IsAssigned(m, player) {
		return Placement{Index: -1}, fmt.Errorf("%q: %w", player, model.ErrAlreadyAssigned)
	}
	matches, err := FindMatches(flat, query)
	if err != nil {
		return Placement{Index: -1}, err
	}
	for _, i := range matches {
		// Indexes past the matrix belong to roles added after creation.
		if i >= len(m) {
			continue
		}
		if len(m[i]) == 0 {
			m[i] = []string{player}
			return Placement{Index: i, Role: flat[i], Player: player}, nil
		}
	}
	return Placement{Index: -1}, fmt.Errorf("%q: %w", query, model.ErrSlotsFull)
}

func clearMatches(m model.SlotMatrix, flat []string, query string) Placement {
	res := Placement{Index: -1}
	matches, err := FindMatches(flat, query)
	if err != nil {
		return res
	}
	for _, i := range matches {
		if i < len(m) && len(m[i]) > 0 {
			m[i] = []string{}
			res.Cleared++
		}
	}
	return res
}

// Unassign removes player from every slot holding them and returns the
// number of removals. Zero is a reportable outcome, not an error.
func Unassign(m model.SlotMatrix, player string) int {
	player = strings.TrimSpace(player)
	removed := 0
	for i, slot := range m {
		kept := make([]string, 0, len(slot))
		for _, p := range slot {
			if strings.EqualFold(p, player) {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) != len(slot) {
			m[i] = kept
		}
	}
	return removed
}
