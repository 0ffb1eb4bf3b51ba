package roster

import (
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/mattn/go-runewidth"
)

// Table layout constants.
const (
	MinColumnWidth = 15
	MaxColumnWidth = 30
	EmptyCell      = "-"
	truncTail      = ".."
)

// cells measures display width with a fixed condition so output does not
// depend on the process locale.
var cells = &runewidth.Condition{EastAsianWidth: false, StrictEmojiNeutral: true}

// RenderTable draws one ROLE | PLAYER table per party. Slots are read from m
// by flattened index; slots missing from m render as empty. Multi-party
// templates label each block "Party N". The output depends only on the
// arguments.
func RenderTable(parties [][]string, m model.SlotMatrix) string {
	blocks := make([]string, 0, len(parties))
	offset := 0
	for p, roles := range parties {
		players := make([]string, len(roles))
		for r := range roles {
			players[r] = playerCell(m, offset+r)
		}
		offset += len(roles)

		table := renderParty(roles, players)
		if len(parties) > 1 {
			table = "Party " + strconv.Itoa(p+1) + "\n" + table
		}
		blocks = append(blocks, table)
	}
	return strings.Join(blocks, "\n\n")
}

func playerCell(m model.SlotMatrix, i int) string {
	if i >= len(m) || len(m[i]) == 0 {
		return EmptyCell
	}
	return strings.Join(m[i], ", ")
}

func renderParty(roles, players []string) string {
	wRole := columnWidth(roles)
	wPlayer := columnWidth(players)

	header := cells.FillRight("ROLE", wRole) + " | " + cells.FillRight("PLAYER", wPlayer)
	lines := make([]string, 0, len(roles)+2)
	lines = append(lines, header, strings.Repeat("-", cells.StringWidth(header)))
	for i, role := range roles {
		lines = append(lines, fitCell(role, wRole)+" | "+fitCell(players[i], wPlayer))
	}
	return strings.Join(lines, "\n")
}

func columnWidth(entries []string) int {
	w := MinColumnWidth
	for _, e := range entries {
		w = max(w, cells.StringWidth(e))
	}
	return min(w, MaxColumnWidth)
}

// fitCell pads s to w, or cuts it and appends ".." so it fits exactly.
func fitCell(s string, w int) string {
	if cells.StringWidth(s) > w {
		s = cells.Truncate(s, w, truncTail)
	}
	return cells.FillRight(s, w)
}
