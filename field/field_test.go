package field

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/reskit/shape"
)

type recipe struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	PrepTimeMinutes int      `json:"prepTimeMinutes"`
	Servings        int      `json:"servings" default:"2"`
	Rating          *float64 `json:"rating"`
	Notes           string   `json:"notes,omitempty"`
}

func keys(fs []Resolved) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Key
	}
	return out
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"prepTimeMinutes": "Prep Time Minutes",
		"id":              "Id",
		"":                "",
		"URL":             "URL",
		"userID":          "User ID",
		"snake_case":      "Snake_case",
		"aBcD":            "A Bc D",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), in)
	}
}

func TestRegistry_RegisterReturnsSameField(t *testing.T) {
	reg := NewRegistry()
	f := shape.Of[recipe]().Field("title")

	assert.False(t, reg.Has(f))
	assert.Same(t, f, reg.Register(f, Meta{Label: "Recipe title"}))
	assert.True(t, reg.Has(f))

	reg.Register(f, Meta{Label: "Name"})
	m, ok := reg.Get(f)
	require.True(t, ok)
	assert.Equal(t, "Name", m.Label)
}

func TestResolveField_Defaults(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()

	res := reg.ResolveField("prepTimeMinutes", s.Field("prepTimeMinutes"))
	assert.Equal(t, "Prep Time Minutes", res.Label)
	assert.False(t, res.Hidden)
	assert.False(t, res.ReadOnly)
	assert.True(t, res.Required)
	assert.True(t, math.IsInf(res.Order, 1))

	for _, key := range []string{"servings", "rating", "notes"} {
		assert.False(t, reg.ResolveField(key, s.Field(key)).Required, key)
	}
}

func TestResolveFields_StableOrder(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	reg.Register(s.Field("rating"), Meta{Order: Int(1)})
	reg.Register(s.Field("title"), Meta{Order: Int(0)})

	assert.Equal(t, []string{"title", "rating", "id", "prepTimeMinutes", "servings", "notes"}, keys(reg.ResolveFields(s)))
}

func TestFieldsForView_GlobalHiddenWins(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	reg.Register(s.Field("id"), Meta{
		Hidden: true,
		Views:  Views{ViewList: {Hidden: false, Label: "Identifier"}},
	})

	for _, view := range AllViews {
		assert.NotContains(t, keys(reg.FieldsForView(s, view)), "id", view)
	}
}

func TestFieldsForView_ViewHidden(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	reg.Register(s.Field("notes"), Meta{Views: Views{ViewList: {Hidden: true}}})

	assert.NotContains(t, keys(reg.FieldsForView(s, ViewList)), "notes")
	assert.Contains(t, keys(reg.FieldsForView(s, ViewDetail)), "notes")
}

func TestFieldsForView_OverrideMerge(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	render := func(v any) string { return "*" }
	reg.Register(s.Field("title"), Meta{
		Label: "X",
		Order: Int(1),
		Views: Views{ViewList: {Label: "Y", Render: render}},
	})

	list := reg.FieldsForView(s, ViewList)
	require.Equal(t, "title", list[0].Key)
	assert.Equal(t, "Y", list[0].Label)
	assert.Equal(t, float64(1), list[0].Order)
	require.NotNil(t, list[0].Render)
	assert.Equal(t, "*", list[0].Render("anything"))

	edit := reg.FieldsForView(s, ViewEdit)
	require.Equal(t, "title", edit[0].Key)
	assert.Equal(t, "X", edit[0].Label)
	assert.Nil(t, edit[0].Render)
}

func TestFieldsForView_OverrideReorders(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	reg.Register(s.Field("title"), Meta{Order: Int(1)})
	reg.Register(s.Field("rating"), Meta{Order: Int(2), Views: Views{ViewList: {Order: Int(0), ReadOnly: Bool(true)}}})

	list := reg.FieldsForView(s, ViewList)
	assert.Equal(t, []string{"rating", "title"}, keys(list)[:2])
	assert.True(t, list[0].ReadOnly)

	detail := reg.FieldsForView(s, ViewDetail)
	assert.Equal(t, []string{"title", "rating"}, keys(detail)[:2])
}

func TestFieldsForView_NoMetadataPassesThrough(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()
	assert.Equal(t, reg.ResolveFields(s), reg.FieldsForView(s, ViewCreate))
}

func TestParseTag(t *testing.T) {
	m, err := ParseTag("label=Prep time; order=2; readonly; list.hidden; edit.readonly=false; detail.order=-1; create.label=Minutes")
	require.NoError(t, err)

	assert.Equal(t, "Prep time", m.Label)
	assert.Equal(t, 2, *m.Order)
	assert.True(t, m.ReadOnly)
	assert.False(t, m.Hidden)
	assert.True(t, m.Views[ViewList].Hidden)
	require.NotNil(t, m.Views[ViewEdit].ReadOnly)
	assert.False(t, *m.Views[ViewEdit].ReadOnly)
	assert.Equal(t, -1, *m.Views[ViewDetail].Order)
	assert.Equal(t, "Minutes", m.Views[ViewCreate].Label)

	for _, bad := range []string{"colour=red", "order=x", "grid.hidden", "hidden=maybe"} {
		_, err := ParseTag(bad)
		assert.Error(t, err, bad)
	}
}

type tagged struct {
	ID    string `json:"id" admin:"readonly;create.hidden"`
	Title string `json:"title" admin:"label=Name;order=0"`
	Body  string `json:"body"`
}

type badlyTagged struct {
	ID string `json:"id" admin:"order=first"`
}

func TestRegisterTags(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[tagged]()
	require.NoError(t, reg.RegisterTags(s))

	assert.True(t, reg.Has(s.Field("id")))
	assert.False(t, reg.Has(s.Field("body")))

	create := reg.FieldsForView(s, ViewCreate)
	assert.Equal(t, []string{"title", "body"}, keys(create))
	assert.Equal(t, "Name", create[0].Label)

	err := reg.RegisterTags(shape.Of[badlyTagged]())
	assert.ErrorContains(t, err, "badlyTagged.ID")
}

func TestResolved_MarshalJSON(t *testing.T) {
	reg := NewRegistry()
	s := shape.Of[recipe]()

	data, err := json.Marshal(reg.ResolveField("notes", s.Field("notes")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"notes","label":"Notes","hidden":false,"readOnly":false,"required":false,"order":null,"kind":"string"}`, string(data))
}
