package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// Display limits for a rendered content view.
const (
	maxBodyLen          = 3900
	fallbackDescLen     = 200
	fallbackTableLen    = 1500
	maxWaitlistLen      = 1000
	truncatedWaitlistTo = 950

	NoDataBody       = "⚠️ No data."
	EmptyWaitlist    = "*Nobody has signed up*"
	WaitlistHeading  = "📋 Waitlist"
	oversizedWarning = "⚠️ Too long to show in full."
)

// View is a content rendered for a display surface. Equal inputs give equal
// views, so displays can compare views to detect change.
type View struct {
	ContentID   int64  `json:"content_id"`
	ExternalRef string `json:"external_ref"`
	ChannelRef  string `json:"channel_ref"`
	Title       string `json:"title"`
	Footer      string `json:"footer"`
	Body        string `json:"body"`
	Waitlist    string `json:"waitlist"`
}

// Text joins the view into one block.
func (v View) Text() string {
	return v.Title + "\n\n" + v.Body + "\n\n" + WaitlistHeading + "\n" + v.Waitlist + "\n\n" + v.Footer
}

// RenderContent builds the view of a content instance. tpl may be nil when
// the template was deleted; tplErr carries a template that failed to load or
// decode. Neither fails the render: the body degrades instead.
func RenderContent(c *model.Content, tpl *model.Template, tplErr error) View {
	id := strconv.FormatInt(c.ID, 10)
	v := View{
		ContentID:   c.ID,
		ExternalRef: c.ExternalRef,
		ChannelRef:  c.ChannelRef,
		Title:       "⚔️ " + c.Name + RefSeparator + id,
		Footer:      "Template: " + c.TemplateName + " | ID: " + id,
		Waitlist:    renderWaitlist(c.Signups),
	}

	switch {
	case tplErr != nil:
		v.Body = "Error: " + tplErr.Error()
	case (tpl == nil || tpl.RoleCount() == 0) && len(c.Slots) == 0:
		v.Body = NoDataBody
	default:
		var parties [][]string
		if tpl != nil {
			parties = tpl.Parties
		}
		v.Body = renderBody(c, parties)
	}
	return v
}

func renderBody(c *model.Content, parties [][]string) string {
	table := RenderTable(parties, c.Slots)
	if warn := mismatchWarning(parties, c.Slots); warn != "" {
		table += "\n" + warn
	}

	body := table
	if c.Description != "" {
		body = c.Description + "\n\n" + table
	}
	if len([]rune(body)) < maxBodyLen {
		return body
	}
	return headRunes(c.Description, fallbackDescLen) + "...\n" + oversizedWarning + "\n" + headRunes(table, fallbackTableLen) + "..."
}

// mismatchWarning flags a matrix whose length no longer matches the
// template, which happens when a template is edited after creation.
func mismatchWarning(parties [][]string, m model.SlotMatrix) string {
	roles := 0
	for _, p := range parties {
		roles += len(p)
	}
	if roles == len(m) {
		return ""
	}
	return fmt.Sprintf("⚠️ Roster has %d slots but the template has %d roles.", len(m), roles)
}

func renderWaitlist(signups []model.Signup) string {
	if len(signups) == 0 {
		return EmptyWaitlist
	}
	lines := make([]string, 0, len(signups))
	for _, s := range signups {
		who := s.DisplayName
		if s.UserID != 0 {
			who = "<@" + strconv.FormatInt(s.UserID, 10) + ">"
		}
		lines = append(lines, "• "+who+" ("+s.RoleText+")")
	}
	text := strings.Join(lines, "\n")
	if len([]rune(text)) > maxWaitlistLen {
		text = headRunes(text, truncatedWaitlistTo) + "..."
	}
	return text
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
