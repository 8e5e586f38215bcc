package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RegistersCatalogEntities(t *testing.T) {
	reg := Default()

	assert.Equal(t, []string{"genres", "languages", "authors", "books", "bookinstances"}, reg.Names())

	books, err := reg.Lookup("books")
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "author", "display_genre"}, books.ListDisplay)

	authors, err := reg.Lookup("authors")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "last_name", "date_of_birth", "date_of_death"}, authors.ListDisplay)

	instances, err := reg.Lookup("bookinstances")
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "due_back"}, instances.ListFilter)
}

func TestDefault_InlinesAreReadCreateOnly(t *testing.T) {
	reg := Default()

	tests := []struct {
		parent, child, fk string
	}{
		{"authors", "books", "author_id"},
		{"books", "bookinstances", "book_id"},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"/"+tt.child, func(t *testing.T) {
			parent, err := reg.Lookup(tt.parent)
			require.NoError(t, err)

			inline, ok := parent.Inline(tt.child)
			require.True(t, ok)
			assert.Equal(t, tt.fk, inline.ForeignKey)
			assert.True(t, inline.CanAdd)
			assert.False(t, inline.CanChange)
		})
	}

	genres, err := reg.Lookup("genres")
	require.NoError(t, err)
	_, ok := genres.Inline("books")
	assert.False(t, ok)
}

func TestLookup_UnknownEntity(t *testing.T) {
	_, err := Default().Lookup("patrons")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestEntity_Project(t *testing.T) {
	entity := &Entity{Name: "authors", ListDisplay: []string{"first_name", "last_name", "date_of_death"}}

	row := map[string]any{"id": 1, "first_name": "Jane", "last_name": "Austen", "summary": "x"}
	got := entity.Project(row)

	assert.Equal(t, map[string]any{"first_name": "Jane", "last_name": "Austen", "date_of_death": nil}, got)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "entities: [name: x"},
		{"empty", "entities: []"},
		{"missing name", "entities:\n  - list_display: [a]"},
		{"duplicate", "entities:\n  - {name: a, list_display: [x]}\n  - {name: a, list_display: [y]}"},
		{"no list display", "entities:\n  - {name: a}"},
		{"unknown inline", "entities:\n  - name: a\n    list_display: [x]\n    inlines: [{entity: b, foreign_key: a_id}]"},
		{"inline without fk", "entities:\n  - {name: b, list_display: [y]}\n  - name: a\n    list_display: [x]\n    inlines: [{entity: b}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
