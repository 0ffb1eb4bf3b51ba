package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/content-roster/internal/model"
	"github.com/Shivanand-hulikatti/content-roster/internal/roster"
)

func TestDecodeRoles_Shapes(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantParties [][]string
		wantFlat    []string
	}{
		{
			name:        "flat strings",
			raw:         `["Tank","Healer","DPS"]`,
			wantParties: [][]string{{"Tank", "Healer", "DPS"}},
			wantFlat:    []string{"Tank", "Healer", "DPS"},
		},
		{
			name:        "flat records",
			raw:         `[{"name":"Tank","emoji":"🛡"},{"name":"Healer"}]`,
			wantParties: [][]string{{"Tank", "Healer"}},
			wantFlat:    []string{"Tank", "Healer"},
		},
		{
			name:        "nested parties",
			raw:         `[["Tank","Healer"],["DPS"],["Scout","Bomb"]]`,
			wantParties: [][]string{{"Tank", "Healer"}, {"DPS"}, {"Scout", "Bomb"}},
			wantFlat:    []string{"Tank", "Healer", "DPS", "Scout", "Bomb"},
		},
		{
			name:        "nested records",
			raw:         `[[{"name":"Tank"}],[{"name":"DPS"},"Support"]]`,
			wantParties: [][]string{{"Tank"}, {"DPS", "Support"}},
			wantFlat:    []string{"Tank", "DPS", "Support"},
		},
		{
			name:        "empty list",
			raw:         `[]`,
			wantParties: [][]string{},
			wantFlat:    []string{},
		},
		{
			name:        "numeric role names",
			raw:         `[1, 2.5]`,
			wantParties: [][]string{{"1", "2.5"}},
			wantFlat:    []string{"1", "2.5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parties, flat, err := roster.DecodeRoles([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantParties, parties)
			assert.Equal(t, tt.wantFlat, flat)
		})
	}
}

func TestDecodeRoles_FlatLengthIsSumOfParties(t *testing.T) {
	parties, flat, err := roster.DecodeRoles([]byte(`[["a","b","c"],[],["d"],["e","f"]]`))
	require.NoError(t, err)

	total := 0
	var concat []string
	for _, p := range parties {
		total += len(p)
		concat = append(concat, p...)
	}
	assert.Len(t, flat, total)
	assert.Equal(t, concat, flat)
}

func TestDecodeRoles_Corrupt(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":            `[["Tank"`,
		"object root":         `{"roles":["Tank"]}`,
		"mixed nesting":       `[["Tank"],"Healer"]`,
		"record without name": `[{"title":"Tank"}]`,
		"null role":           `["Tank", null]`,
		"list inside flat":    `["Tank", ["Healer"]]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := roster.DecodeRoles([]byte(raw))
			assert.ErrorIs(t, err, model.ErrDataCorruption)
		})
	}
}

func TestDecodeTemplate(t *testing.T) {
	tpl, err := roster.DecodeTemplate(&model.TemplateRecord{Name: "zvz", Roles: []byte(`["Caller","Healer"]`)})
	require.NoError(t, err)
	assert.Equal(t, "zvz", tpl.Name)
	assert.Equal(t, [][]string{{"Caller", "Healer"}}, tpl.Parties)

	_, err = roster.DecodeTemplate(&model.TemplateRecord{Name: "bad", Roles: []byte(`"Caller"`)})
	assert.ErrorIs(t, err, model.ErrDataCorruption)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestNormalize_YAMLStyleMaps(t *testing.T) {
	raw := []any{
		[]any{map[string]any{"name": "Tank"}, "Healer"},
		[]any{map[any]any{"name": "DPS"}},
	}
	parties, flat, err := roster.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Tank", "Healer"}, {"DPS"}}, parties)
	assert.Equal(t, []string{"Tank", "Healer", "DPS"}, flat)
}

func TestParseTemplateText(t *testing.T) {
	parties, err := roster.ParseTemplateText("Tank, Healer\n\n  DPS ,, Support \n,\n")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Tank", "Healer"}, {"DPS", "Support"}}, parties)

	_, err = roster.ParseTemplateText(" \n , \n")
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestFormatTemplateText_RoundTripKeepsParties(t *testing.T) {
	parties := [][]string{{"Tank", "Healer"}, {"DPS"}}
	text := roster.FormatTemplateText(parties)
	assert.Equal(t, "Tank, Healer\nDPS", text)

	back, err := roster.ParseTemplateText(text)
	require.NoError(t, err)
	assert.Equal(t, parties, back)
}

func TestCleanParties(t *testing.T) {
	parties, err := roster.CleanParties([][]string{{" Tank ", ""}, {}, {"DPS"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Tank"}, {"DPS"}}, parties)

	_, err = roster.CleanParties([][]string{{" "}})
	assert.ErrorIs(t, err, model.ErrInvalid)
}
