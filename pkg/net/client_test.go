package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestGetOAuthClient(t *testing.T) {
	client := GetOAuthClient(context.Background(), "test-token")
	assert.NotNil(t, client)
}

func TestPrintHTTPResponse(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
	PrintHTTPResponse(&http.Response{StatusCode: 500, Header: http.Header{}, Body: http.NoBody})
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"http://example.com/m.tsv", true},
		{"HTTPS://example.com/m.tsv", true},
		{"data/m.tsv", false},
		{"/tmp/http/m.tsv", false},
		{"s3://bucket/m.tsv", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemote(tt.src))
		})
	}
}

func TestFetch_Local(t *testing.T) {
	p, err := Fetch(context.Background(), "testdata/m.tsv", "", "")
	require.NoError(t, err)
	assert.Equal(t, "testdata/m.tsv", p)
}

func TestFetch_DownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		auth.Store(r.Header.Get("Authorization"))
		if r.URL.Path == "/missing.tsv" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/broken.tsv" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("\tsun\nsun\t1\n"))
	}))
	defer srv.Close()

	ctx := context.Background()
	cache := filepath.Join(t.TempDir(), "cache")

	p, err := Fetch(ctx, srv.URL+"/m.tsv", cache, "secret")
	require.NoError(t, err)
	assert.Equal(t, cache, filepath.Dir(p))
	assert.True(t, strings.HasSuffix(p, ".tsv"))
	assert.Equal(t, "Bearer secret", auth.Load())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "\tsun\nsun\t1\n", string(b))

	again, err := Fetch(ctx, srv.URL+"/m.tsv", cache, "")
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, int32(1), hits.Load())

	_, err = Fetch(ctx, srv.URL+"/missing.tsv", cache, "")
	assert.ErrorIs(t, err, ErrorURLNotFound)
	assert.Equal(t, "", auth.Load())

	_, err = Fetch(ctx, srv.URL+"/broken.tsv", cache, "")
	assert.Error(t, err)

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetch_NoCacheDir(t *testing.T) {
	_, err := Fetch(context.Background(), "https://example.com/m.tsv", "", "")
	assert.Error(t, err)
}
