package cli

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webharvest/scrape-client/pkg/client"
)

func testResult(body string) *client.Result {
	return &client.Result{
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(body),
	}
}

func TestParseParams(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		values, err := parseParams(nil)
		require.NoError(t, err)
		assert.Nil(t, values)
	})

	t.Run("single pair", func(t *testing.T) {
		values, err := parseParams([]string{"q=golang"})
		require.NoError(t, err)
		assert.Equal(t, []string{"golang"}, values["q"])
	})

	t.Run("repeated key accumulates", func(t *testing.T) {
		values, err := parseParams([]string{"tag=a", "tag=b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, values["tag"])
	})

	t.Run("empty value allowed", func(t *testing.T) {
		values, err := parseParams([]string{"flag="})
		require.NoError(t, err)
		assert.Contains(t, values, "flag")
	})

	t.Run("missing equals rejected", func(t *testing.T) {
		_, err := parseParams([]string{"novalue"})
		assert.Error(t, err)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := parseParams([]string{"=value"})
		assert.Error(t, err)
	})
}

func TestWriteCSV(t *testing.T) {
	rows := []fetchRow{
		{
			URL:        "https://example.com/a",
			StatusCode: 200,
			FromCache:  false,
			Title:      "Page A",
			Links:      []string{"/one", "/two"},
		},
		{
			URL:        "https://example.com/b",
			StatusCode: 200,
			FromCache:  true,
			Title:      "Page B",
		},
		{
			URL: "https://example.com/broken",
			Err: os.ErrDeadlineExceeded,
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header + two links for A + one row for B; failed rows are skipped
	require.Len(t, records, 4)
	assert.Equal(t, []string{"url", "status", "from_cache", "title", "link"}, records[0])
	assert.Equal(t, "/one", records[1][4])
	assert.Equal(t, "/two", records[2][4])
	assert.Equal(t, "true", records[3][2])
	assert.Equal(t, "Page B", records[3][3])
}

func TestBuildRowParsesHTML(t *testing.T) {
	origExtractTitle, origExtractLinks := extractTitle, extractLinks
	extractTitle, extractLinks = true, true
	defer func() { extractTitle, extractLinks = origExtractTitle, origExtractLinks }()

	html := `<html><head><title>Hello</title></head><body>
		<a href="/first">one</a>
		<a href="https://example.org/second">two</a>
		<a>no href</a>
	</body></html>`

	row := buildRow("https://example.com/x", testResult(html), nil)
	require.NoError(t, row.Err)
	assert.Equal(t, "Hello", row.Title)
	assert.Equal(t, []string{"/first", "https://example.org/second"}, row.Links)
}
