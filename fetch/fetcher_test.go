package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clipstitch/clips"
	"clipstitch/models"
)

func testFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{},
		Timeout: 5 * time.Second,
		Retries: 3,
		Backoff: time.Millisecond,
	}
}

func TestFetchAllPreservesRequestOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload for "+r.URL.Path)
	}))
	defer srv.Close()

	reqs := []models.ClipRequest{
		{Source: srv.URL + "/first"},
		{Source: srv.URL + "/second"},
		{Source: srv.URL + "/third"},
	}

	dir := t.TempDir()
	assets, err := testFetcher().FetchAll(context.Background(), reqs, dir, 3)
	require.NoError(t, err)
	require.Len(t, assets, 3)

	for i, want := range []string{"/first", "/second", "/third"} {
		require.Equal(t, i, assets[i].Index)
		require.Equal(t, srv.URL+want, assets[i].Source)

		data, err := os.ReadFile(assets[i].LocalPath)
		require.NoError(t, err)
		require.Equal(t, "payload for "+want, string(data))
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok after retries")
	}))
	defer srv.Close()

	assets, err := testFetcher().FetchAll(context.Background(),
		[]models.ClipRequest{{Source: srv.URL}}, t.TempDir(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load())

	data, err := os.ReadFile(assets[0].LocalPath)
	require.NoError(t, err)
	require.Equal(t, "ok after retries", string(data))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher().FetchAll(context.Background(),
		[]models.ClipRequest{{Source: srv.URL}}, t.TempDir(), 1)
	require.Error(t, err)
	require.EqualValues(t, 1, hits.Load())

	kind, _ := clips.Classify(err)
	require.Equal(t, clips.KindFetch, kind)
}

func TestFetchRejectsMalformedURL(t *testing.T) {
	_, err := testFetcher().FetchAll(context.Background(),
		[]models.ClipRequest{{Source: "not a url"}}, t.TempDir(), 1)
	require.Error(t, err)

	kind, _ := clips.Classify(err)
	require.Equal(t, clips.KindFetch, kind)
}

func TestFetchSendsPerClipHeaders(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	_, err := testFetcher().FetchAll(context.Background(),
		[]models.ClipRequest{{
			Source:  srv.URL,
			Headers: map[string]string{"Authorization": "Bearer clip-token"},
		}}, t.TempDir(), 1)
	require.NoError(t, err)
	require.Equal(t, "Bearer clip-token", got.Load())
}

func TestFetchFailureCancelsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	_, err := testFetcher().FetchAll(context.Background(), []models.ClipRequest{
		{Source: srv.URL + "/good"},
		{Source: srv.URL + "/bad"},
	}, t.TempDir(), 2)
	require.Error(t, err)

	var se *clips.StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 1, se.ClipIndex)
}
