package book

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frankensteinJSON = `{
	"id": 84,
	"title": "Frankenstein; Or, The Modern Prometheus",
	"authors": [{"name": "Shelley, Mary Wollstonecraft", "birth_year": 1797, "death_year": 1851}],
	"translators": [],
	"subjects": [
		"Frankenstein's monster (Fictitious character) -- Fiction",
		"Frankenstein, Victor (Fictitious character) -- Fiction",
		"Gothic fiction",
		"Horror tales"
	],
	"bookshelves": ["Gothic Fiction", "Movie Books"],
	"languages": ["en"],
	"copyright": false,
	"media_type": "Text",
	"formats": {
		"text/html": "https://www.gutenberg.org/ebooks/84.html.images",
		"image/jpeg": "https://www.gutenberg.org/cache/epub/84/pg84.cover.medium.jpg"
	},
	"download_count": 95402
}`

func TestBookFromAPI(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(frankensteinJSON), &b))
	b.Normalize()

	assert.Equal(t, 84, b.ID)
	assert.Equal(t, "Shelley, Mary Wollstonecraft", b.AuthorNames())
	assert.Equal(t, "", b.TranslatorNames())
	assert.Equal(t,
		"Frankenstein's monster (Fictitious character) -- Fiction, Frankenstein, Victor (Fictitious character) -- Fiction, Gothic fiction",
		b.SubjectSummary())
	assert.Equal(t, "https://www.gutenberg.org/cache/epub/84/pg84.cover.medium.jpg", b.CoverURL("placeholder.svg"))
	assert.Equal(t, "Public Domain", b.CopyrightLabel())
	assert.Equal(t, "95402", b.DownloadLabel())

	links := b.FormatLinks()
	require.Len(t, links, 2)
	assert.Equal(t, "image/jpeg", links[0].Label)
	assert.Equal(t, "text/html", links[1].Label)
}

func TestCoverURLFallsBackToPlaceholder(t *testing.T) {
	b := Book{ID: 1, Formats: map[string]string{"text/plain": "https://example.org/1.txt"}}
	assert.Equal(t, "placeholder.svg", b.CoverURL("placeholder.svg"))

	var nilFormats Book
	assert.Equal(t, "placeholder.svg", nilFormats.CoverURL("placeholder.svg"))
}

func TestUnknownFields(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"id": 5, "title": "x", "copyright": null, "download_count": null}`), &b))

	assert.Equal(t, "Unknown", b.SubjectSummary())
	assert.Equal(t, "N/A", b.DownloadLabel())
	assert.Equal(t, "Public Domain", b.CopyrightLabel())

	yes := true
	b.Copyright = &yes
	assert.Equal(t, "Copyrighted", b.CopyrightLabel())
}

func TestNormalizeStripsMarkup(t *testing.T) {
	b := Book{
		Title:    "<b>Pride & Prejudice</b>",
		Subjects: []string{"<i>Love stories</i>", "  "},
		Formats:  map[string]string{"": "https://example.org", "text/plain": ""},
	}
	b.Normalize()

	assert.Equal(t, "Pride & Prejudice", b.Title)
	assert.Equal(t, []string{"Love stories"}, b.Subjects)
	assert.Empty(t, b.Formats)
}

func TestVocabulary(t *testing.T) {
	books := []Book{
		{Subjects: []string{"Gothic fiction", "Horror tales"}},
		{Subjects: []string{"gothic FICTION", "Science fiction"}},
		{},
	}

	assert.Equal(t, []string{"gothic fiction", "horror tales", "science fiction"}, Vocabulary(books))
	assert.Empty(t, Vocabulary(nil))
	assert.Equal(t, "Science Fiction", GenreLabel("science fiction"))
}

func TestCursorRoundTrip(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, EncodeCursor(""))
		u, err := DecodeCursor("")
		assert.NoError(t, err)
		assert.Empty(t, u)
	})

	t.Run("continuation", func(t *testing.T) {
		next := "https://gutendex.com/books/?page=2&search=odyssey"
		token := EncodeCursor(next)
		assert.NotContains(t, token, "gutendex")

		decoded, err := DecodeCursor(token)
		require.NoError(t, err)
		assert.Equal(t, next, decoded)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeCursor("not base64!!!")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	data := "Subject,Label\nscience fiction,Sci-Fi\n,ignored\nhorror tales,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
	assert.Equal(t, "Sci-Fi", labels.Label("Science Fiction"))
	assert.Equal(t, "Horror Tales", labels.Label("horror tales"))

	missing, err := LoadLabels(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	none, err := LoadLabels("")
	require.NoError(t, err)
	assert.Equal(t, "Love Stories", none.Label("love stories"))
}

func TestLoadLabelsAlternateColumnsAndAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	data := "# display names for the genre filter\n" +
		"topic,name,aliases\n" +
		"science fiction,Sci-Fi,sf|space opera\n" +
		"monsters,Creature Features\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi", labels.Label("SF"))
	assert.Equal(t, "Sci-Fi", labels.Label("space opera"))
	assert.Equal(t, "Creature Features", labels.Label("Monsters -- Fiction"))
	assert.Equal(t, "Epic Poetry, Greek", labels.Label("Epic poetry, Greek"))
}

func TestLoadLabelsRejectsUnknownColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.csv")
	require.NoError(t, os.WriteFile(path, []byte("code,name_ru\nsf_horror,Ужасы\n"), 0o644))

	_, err := LoadLabels(path)
	assert.Error(t, err)
}
