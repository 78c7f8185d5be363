package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestExtractPrefersOpenGraphTitle(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	html := `<html><head>
		<title>Site | Generic Title</title>
		<meta property="og:title" content="The Real Headline">
	</head><body><h1>On-page Heading</h1><p>Body text.</p></body></html>`

	result, err := svc.Extract([]byte(html), "https://site.test/a")
	require.NoError(t, err)
	assert.Equal(t, "The Real Headline", result.Title)
	assert.Contains(t, result.Markdown, "Body text.")
}

func TestExtractFallsBackToH1ThenTitle(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	result, err := svc.Extract([]byte(`<html><body><h1>Heading</h1><p>x</p></body></html>`), "https://site.test/a")
	require.NoError(t, err)
	assert.Equal(t, "Heading", result.Title)

	result, err = svc.Extract([]byte(`<html><head><title>Doc Title</title></head><body><p>x</p></body></html>`), "https://site.test/a")
	require.NoError(t, err)
	assert.Equal(t, "Doc Title", result.Title)
}

func TestExtractStripsChrome(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	html := `<html><body>
		<nav><a href="/">Home</a><a href="/news">News</a></nav>
		<script>alert("hi")</script>
		<p>Article content here.</p>
		<footer>Copyright</footer>
	</body></html>`

	result, err := svc.Extract([]byte(html), "https://site.test/a")
	require.NoError(t, err)
	assert.Contains(t, result.Markdown, "Article content here.")
	assert.NotContains(t, result.Markdown, "Home")
	assert.NotContains(t, result.Markdown, "alert")
	assert.NotContains(t, result.Markdown, "Copyright")
}

func TestExtractPublishedDate(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	html := `<html><head>
		<meta property="article:published_time" content="2024-06-01T10:30:00Z">
	</head><body><p>x</p></body></html>`

	result, err := svc.Extract([]byte(html), "https://site.test/a")
	require.NoError(t, err)
	require.NotNil(t, result.PublishedAt)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC), result.PublishedAt.UTC())
}

func TestExtractEmptyContentFails(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	_, err := svc.Extract([]byte(`<html><body><script>x</script></body></html>`), "https://site.test/a")
	assert.Error(t, err)
}

func TestContentHashIsStable(t *testing.T) {
	a := ContentHash("same content")
	b := ContentHash("same content")
	c := ContentHash("different content")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
