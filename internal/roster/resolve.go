package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
)

// RefSeparator joins a content name and id in autocomplete labels.
const RefSeparator = " - "

// ContentLookup is the read side the resolver needs.
type ContentLookup interface {
	GetContent(ctx context.Context, id int64) (*model.Content, error)
	ListActiveContents(ctx context.Context, channelRef string) ([]model.Content, error)
}

// Resolve turns a user-supplied reference into a content instance, trying
// in order: an all-digit id, an exact name among the channel's active
// contents (most recent first), then the id after the last " - ".
// Surrounding whitespace is ignored at every step.
//
// An all-digit reference is always treated as an id, even when a content
// in the channel carries that string as its name.
func Resolve(ctx context.Context, lookup ContentLookup, rawRef, channelRef string) (*model.Content, error) {
	ref := strings.TrimSpace(rawRef)
	if ref == "" {
		return nil, fmt.Errorf("empty reference: %w", model.ErrContentNotFound)
	}

	if isDigits(ref) {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reference %q: %w", ref, model.ErrContentNotFound)
		}
		return lookup.GetContent(ctx, id)
	}

	actives, err := lookup.ListActiveContents(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	for i := range actives {
		if actives[i].Name == ref {
			return &actives[i], nil
		}
	}

	if idx := strings.LastIndex(ref, RefSeparator); idx >= 0 {
		tail := strings.TrimSpace(ref[idx+len(RefSeparator):])
		if id, err := strconv.ParseInt(tail, 10, 64); err == nil {
			c, err := lookup.GetContent(ctx, id)
			if err == nil || !errors.Is(err, model.ErrNotFound) {
				return c, err
			}
		}
	}

	return nil, fmt.Errorf("reference %q: %w", ref, model.ErrContentNotFound)
}

// ResolveID is Resolve returning only the id.
func ResolveID(ctx context.Context, lookup ContentLookup, rawRef, channelRef string) (int64, error) {
	c, err := Resolve(ctx, lookup, rawRef, channelRef)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// RefLabel is the "name - id" form offered to users for a content.
func RefLabel(c *model.Content) string {
	return c.Name + RefSeparator + strconv.FormatInt(c.ID, 10)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
