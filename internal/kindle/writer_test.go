package kindle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

func TestFormat(t *testing.T) {
	book := entities.BookProperties{Title: "Meditations", Author: "Marcus Aurelius", LastAnnotated: "May 1, 2021"}
	highlights := []entities.Highlight{
		{Quote: "Waste no more time arguing about what a good man should be. Be one.", Location: "12"},
		{Quote: "The soul becomes dyed with the color of its thoughts.", Location: "40", Note: "favourite"},
	}

	t.Run("header counts come from highlights", func(t *testing.T) {
		text := Format(book, highlights)
		lines := strings.Split(text, "\n")

		assert.Equal(t, "Meditations by Marcus Aurelius", lines[0])
		assert.Equal(t, "You have 2 highlighted passages", lines[1])
		assert.Equal(t, "You have 1 notes", lines[2])
		assert.Equal(t, "Last annotated on May 1, 2021", lines[3])
		assert.Contains(t, text, "Add a note\n")
		assert.Contains(t, text, "Note: favourite Edit\n")
	})

	t.Run("output parses back", func(t *testing.T) {
		result, err := NewParser().ParseText(Format(book, highlights))
		require.NoError(t, err)

		assert.Equal(t, "Meditations", result.Book.Title)
		assert.Equal(t, "Marcus Aurelius", result.Book.Author)
		assert.Equal(t, highlights, result.Highlights)
	})
}
