package ncbi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genomehubs/backfill/pkg/backfill/ncbi"

	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const listingHTML = `<html><body>
<a href="GCA_000002035.1_Zv6/">GCA_000002035.1_Zv6/</a>
<a href="GCA_000002035.2_Zv7/">GCA_000002035.2_Zv7/</a>
<a href="GCA_000002035.3_GRCz10/">GCA_000002035.3_GRCz10/</a>
<a href="GCA_000002035.2_Zv7/">GCA_000002035.2_Zv7/</a>
</body></html>`

func TestHTTPDiscoveryService_ListVersions(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	svc := ncbi.NewHTTPDiscoveryService(srv.URL, srv.Client(), nil)

	versions, err := svc.ListVersions(context.Background(), "GCA_000002035")
	require.NoError(t, err)

	assert.Equal(t, "/GCA/000/002/035/", gotPath)
	assert.Equal(t, []string{
		"GCA_000002035.1",
		"GCA_000002035.2",
		"GCA_000002035.3",
	}, versions)
}

func TestHTTPDiscoveryService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := ncbi.NewHTTPDiscoveryService(srv.URL, srv.Client(), nil)

	_, err := svc.ListVersions(context.Background(), "GCA_000002035")
	require.Error(t, err)

	var discErr *bferrors.DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, http.StatusServiceUnavailable, discErr.StatusCode)
	assert.True(t, bferrors.IsRetryable(err))
}

func TestHTTPDiscoveryService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so requests fail at the transport

	svc := ncbi.NewHTTPDiscoveryService(srv.URL, nil, nil)

	_, err := svc.ListVersions(context.Background(), "GCA_000002035")
	require.Error(t, err)
	assert.True(t, bferrors.IsRetryable(err))
}

func TestHTTPDiscoveryService_MalformedBase(t *testing.T) {
	svc := ncbi.NewHTTPDiscoveryService("http://unused", nil, nil)

	_, err := svc.ListVersions(context.Background(), "GCA_0002")
	require.Error(t, err)

	var discErr *bferrors.DiscoveryError
	assert.ErrorAs(t, err, &discErr)
}

func TestHTTPDiscoveryService_RespectsRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	// A limiter with no burst available and a cancelled context: Wait must
	// fail before any request is made.
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	require.NoError(t, limiter.Wait(context.Background())) // drain the burst

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := ncbi.NewHTTPDiscoveryService(srv.URL, srv.Client(), limiter)
	_, err := svc.ListVersions(ctx, "GCA_000002035")
	assert.Error(t, err)
}

func TestHTTPMetadataService_GetMetadata(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reports":[{"accession":"GCA_000002035.2","assembly_info":{"assembly_name":"Zv7"}}],"total_count":1}`))
	}))
	defer srv.Close()

	svc := ncbi.NewHTTPMetadataService(srv.URL, srv.Client(), nil)

	payload, err := svc.GetMetadata(context.Background(), "GCA_000002035.2")
	require.NoError(t, err)

	assert.Equal(t, "/genome/accession/GCA_000002035.2/dataset_report", gotPath)
	assert.Contains(t, string(payload), `"Zv7"`)
}

func TestHTTPMetadataService_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "404 response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not found", http.StatusNotFound)
			},
		},
		{
			name: "empty report set",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"reports":[],"total_count":0}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			svc := ncbi.NewHTTPMetadataService(srv.URL, srv.Client(), nil)

			_, err := svc.GetMetadata(context.Background(), "GCA_000002035.9")
			require.Error(t, err)

			var nfErr *bferrors.NotFoundError
			require.ErrorAs(t, err, &nfErr)
			assert.Equal(t, "GCA_000002035.9", nfErr.VersionID)
			assert.False(t, bferrors.IsRetryable(err))
		})
	}
}

func TestHTTPMetadataService_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance page</html>`))
	}))
	defer srv.Close()

	svc := ncbi.NewHTTPMetadataService(srv.URL, srv.Client(), nil)

	_, err := svc.GetMetadata(context.Background(), "GCA_000002035.2")
	require.Error(t, err)

	var fetchErr *bferrors.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, bferrors.IsRetryable(err))
}

func TestHTTPMetadataService_RejectsUnexpectedAccession(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := ncbi.NewHTTPMetadataService(srv.URL, srv.Client(), nil)

	_, err := svc.GetMetadata(context.Background(), "../../../etc/passwd")
	require.Error(t, err)
	assert.False(t, called, "no request should be issued for a malformed accession")
	assert.False(t, bferrors.IsRetryable(err))
}
