package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second file")
	writeFile(t, dir, "a.txt", "first file")
	writeFile(t, dir, "blank.txt", "  \n\t ")
	writeFile(t, dir, "broken.pdf", "this is not a pdf")
	writeFile(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	pages, err := LoadDirectory(dir, []string{".txt", ".pdf"})
	require.NoError(t, err)

	assert.Equal(t, []models.Page{
		{Text: "first file", Source: "a.txt", PageNumber: 1},
		{Text: "second file", Source: "b.txt", PageNumber: 1},
	}, pages)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "missing"), []string{".pdf"})
	assert.Error(t, err)
}

func TestLoadDirectoryEmpty(t *testing.T) {
	pages, err := LoadDirectory(t.TempDir(), []string{".pdf"})
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "%PDF-1.4 garbage")
	writeFile(t, dir, "data.bin", "x")

	_, err := ParseFile(filepath.Join(dir, "broken.pdf"))
	assert.ErrorIs(t, err, models.ErrIngestion)

	_, err = ParseFile(filepath.Join(dir, "data.bin"))
	assert.ErrorIs(t, err, models.ErrIngestion)

	_, err = ParseFile(filepath.Join(dir, "absent.txt"))
	assert.ErrorIs(t, err, models.ErrIngestion)
}

func TestParseFileDropsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bytes.txt", "ok\xffdone")

	pages, err := ParseFile(filepath.Join(dir, "bytes.txt"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "okdone", pages[0].Text)
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<p:sld><a:p><a:r><a:t>Hello</a:t></a:r><a:r><a:t xml:space="preserve"> slide &amp; more</a:t></a:r></a:p>` +
		`<a:p><a:pPr/><a:r><a:rPr lang="en-US"/><a:t>two</a:t></a:r></a:p></p:sld>`
	assert.Equal(t, "Hello slide & more\ntwo", extractTextFromXML(xml))
}
