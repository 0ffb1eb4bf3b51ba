package roster

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// Register appends a waitlist entry. An identified user may appear once;
// an unidentified entry (UserID 0) must not share a display name with any
// existing entry.
func Register(signups []model.Signup, s model.Signup) ([]model.Signup, error) {
	s.DisplayName = strings.TrimSpace(s.DisplayName)
	s.RoleText = strings.TrimSpace(s.RoleText)
	if s.DisplayName == "" {
		return signups, fmt.Errorf("%w: display name is required", model.ErrInvalid)
	}
	for _, existing := range signups {
		if s.UserID != 0 && existing.UserID == s.UserID {
			return signups, fmt.Errorf("user %d: %w", s.UserID, model.ErrAlreadySignedUp)
		}
		if s.UserID == 0 && existing.MatchesName(s.DisplayName) {
			return signups, fmt.Errorf("%q: %w", s.DisplayName, model.ErrAlreadySignedUp)
		}
	}
	return append(signups, s), nil
}

// Cancel removes the entry for userID. The count is 0 when absent.
func Cancel(signups []model.Signup, userID int64) ([]model.Signup, int) {
	return filter(signups, func(s model.Signup) bool { return s.UserID == userID })
}

// Kick removes every entry whose display name matches, regardless of identity.
func Kick(signups []model.Signup, name string) ([]model.Signup, int) {
	name = strings.TrimSpace(name)
	return filter(signups, func(s model.Signup) bool { return s.MatchesName(name) })
}

// Graduate drops waitlist entries for a player who was just placed.
func Graduate(signups []model.Signup, player string) ([]model.Signup, int) {
	return Kick(signups, player)
}

func filter(signups []model.Signup, drop func(model.Signup) bool) ([]model.Signup, int) {
	kept := make([]model.Signup, 0, len(signups))
	for _, s := range signups {
		if !drop(s) {
			kept = append(kept, s)
		}
	}
	return kept, len(signups) - len(kept)
}

// AssignAndGraduate runs Assign and, when a player was placed, removes
// their waitlist entries as part of the same operation.
func AssignAndGraduate(m model.SlotMatrix, signups []model.Signup, flat []string, query, player string) (Placement, []model.Signup, error) {
	res, err := Assign(m, flat, query, player)
	if err != nil {
		return res, signups, err
	}
	if res.Placed() {
		signups, res.Graduated = Graduate(signups, res.Player)
	}
	return res, signups, nil
}

// RegisterAndGraduate is AssignAndGraduate for DirectRegister.
func RegisterAndGraduate(m model.SlotMatrix, signups []model.Signup, flat []string, query, player string) (Placement, []model.Signup, error) {
	res, err := DirectRegister(m, flat, query, player)
	if err != nil {
		return res, signups, err
	}
	signups, res.Graduated = Graduate(signups, res.Player)
	return res, signups, nil
}
