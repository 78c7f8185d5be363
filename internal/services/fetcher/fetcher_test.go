package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/abtn/nexus-smart-scraper/internal/common"
	"github.com/abtn/nexus-smart-scraper/internal/models"
)

func testFetcherConfig() common.FetcherConfig {
	return common.FetcherConfig{
		RequestTimeout:  5 * time.Second,
		MaxBodySize:     1 << 20,
		FollowRobotsTxt: true,
	}
}

func TestFetchHonorsRobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		default:
			w.Write([]byte("<html>ok</html>"))
		}
	}))
	defer server.Close()

	svc := NewService(testFetcherConfig(), arbor.NewLogger())
	ctx := context.Background()

	_, err := svc.Fetch(ctx, server.URL+"/private/page")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRobotsDisallowed))

	result, err := svc.Fetch(ctx, server.URL+"/public/page")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestFetchMissingRobotsAllowsEverything(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	svc := NewService(testFetcherConfig(), arbor.NewLogger())

	result, err := svc.Fetch(context.Background(), server.URL+"/anything")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestFetchReturnsTypedErrorForHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	svc := NewService(testFetcherConfig(), arbor.NewLogger())

	result, err := svc.Fetch(context.Background(), server.URL+"/deleted")
	require.Error(t, err)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusGone, fetchErr.StatusCode)
	// The body still comes back for callers that want it.
	require.NotNil(t, result)
	assert.Equal(t, http.StatusGone, result.StatusCode)
}

func TestFetchCapsBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		for i := 0; i < 1000; i++ {
			w.Write([]byte("0123456789"))
		}
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.MaxBodySize = 100
	svc := NewService(cfg, arbor.NewLogger())

	result, err := svc.Fetch(context.Background(), server.URL+"/big")
	require.NoError(t, err)
	assert.Len(t, result.Body, 100)
}

func TestSitemapLocationsFromRobots(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nAllow: /\nSitemap: " + serverURL + "/sitemap-news.xml\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()
	serverURL = server.URL

	svc := NewService(testFetcherConfig(), arbor.NewLogger())

	locations, err := svc.SitemapLocations(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/sitemap-news.xml"}, locations)
}

func TestUserAgentRotation(t *testing.T) {
	agents := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			agents <- r.Header.Get("User-Agent")
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.UserAgents = []string{"agent-a", "agent-b"}
	svc := NewService(cfg, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.Fetch(ctx, server.URL+"/page")
		require.NoError(t, err)
	}
	close(agents)

	seen := map[string]bool{}
	for agent := range agents {
		seen[agent] = true
	}
	assert.True(t, seen["agent-a"])
	assert.True(t, seen["agent-b"])
}
