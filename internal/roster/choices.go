package roster

import (
	"slices"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// MaxChoices caps autocomplete suggestions.
const MaxChoices = 25

// FilterChoices keeps values containing current, ignoring case, up to MaxChoices.
func FilterChoices(values []string, current string) []model.Choice {
	q := strings.ToLower(current)
	out := []model.Choice{}
	for _, v := range values {
		if len(out) == MaxChoices {
			break
		}
		if strings.Contains(strings.ToLower(v), q) {
			out = append(out, model.Choice{Name: v, Value: v})
		}
	}
	return out
}

// ContentChoices labels contents "name - id" and offers the id as value.
func ContentChoices(contents []model.Content, current string) []model.Choice {
	q := strings.ToLower(current)
	out := []model.Choice{}
	for i := range contents {
		if len(out) == MaxChoices {
			break
		}
		label := RefLabel(&contents[i])
		if strings.Contains(strings.ToLower(label), q) {
			out = append(out, model.Choice{Name: label, Value: strconv.FormatInt(contents[i].ID, 10)})
		}
	}
	return out
}

// TablePlayers returns the distinct occupants of m, sorted.
func TablePlayers(m model.SlotMatrix) []string {
	players := append([]string{}, m.Players()...)
	slices.Sort(players)
	return slices.Compact(players)
}

// WaitlistNames returns waitlist display names in signup order.
func WaitlistNames(signups []model.Signup) []string {
	names := make([]string, 0, len(signups))
	for _, s := range signups {
		names = append(names, s.DisplayName)
	}
	return names
}
