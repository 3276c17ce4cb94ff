package ncbi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"time"

	"golang.org/x/time/rate"

	bferrors "github.com/genomehubs/backfill/pkg/backfill/errors"
)

// VersionLister is the external version discovery service: given a base
// accession it returns every known versioned accession. Implementations may
// be unavailable or return malformed listings.
type VersionLister interface {
	ListVersions(ctx context.Context, base string) ([]string, error)
}

// MetadataGetter is the external metadata service: given one versioned
// accession it returns the assembly report payload, in the same shape used
// for current-version records. It may report a version as not found.
type MetadataGetter interface {
	GetMetadata(ctx context.Context, accession string) (json.RawMessage, error)
}

// maxResponseBytes bounds how much of an external response is read.
const maxResponseBytes = 16 << 20

// HTTPDiscoveryService lists assembly versions by reading the genomes
// directory listing over HTTPS and extracting versioned accessions from
// the returned HTML.
type HTTPDiscoveryService struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPDiscoveryService creates a discovery service against baseURL
// (e.g. "https://ftp.ncbi.nlm.nih.gov/genomes/all"). The limiter bounds the
// request rate; pass nil to disable limiting.
func NewHTTPDiscoveryService(baseURL string, client *http.Client, limiter *rate.Limiter) *HTTPDiscoveryService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPDiscoveryService{baseURL: baseURL, client: client, limiter: limiter}
}

// ListVersions implements VersionLister. The returned accessions are
// deduplicated and sorted ascending by version number.
func (s *HTTPDiscoveryService) ListVersions(ctx context.Context, base string) ([]string, error) {
	path, err := listingPath(base)
	if err != nil {
		return nil, &bferrors.DiscoveryError{RootID: base, Message: err.Error(), Err: err}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &bferrors.DiscoveryError{RootID: base, Message: "rate limiter wait", Err: err}
		}
	}

	url := fmt.Sprintf("%s/%s/", s.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &bferrors.DiscoveryError{RootID: base, Message: "build request", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &bferrors.DiscoveryError{RootID: base, Message: "directory listing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &bferrors.DiscoveryError{
			RootID:     base,
			StatusCode: resp.StatusCode,
			Message:    "directory listing returned " + resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &bferrors.DiscoveryError{RootID: base, Message: "read directory listing", Err: err}
	}

	versionRE, err := regexp.Compile(regexp.QuoteMeta(base) + `\.\d+`)
	if err != nil {
		return nil, &bferrors.DiscoveryError{RootID: base, Message: "compile listing pattern", Err: err}
	}

	seen := make(map[string]struct{})
	var versions []string
	for _, match := range versionRE.FindAllString(string(body), -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		versions = append(versions, match)
	}

	sort.Slice(versions, func(i, j int) bool {
		return VersionOf(versions[i]) < VersionOf(versions[j])
	})

	return versions, nil
}

// datasetReport is the envelope returned by the datasets report endpoint.
type datasetReport struct {
	Reports    []json.RawMessage `json:"reports"`
	TotalCount int               `json:"total_count"`
}

// HTTPMetadataService fetches per-version assembly reports from the
// datasets report endpoint.
type HTTPMetadataService struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPMetadataService creates a metadata service against baseURL
// (e.g. "https://api.ncbi.nlm.nih.gov/datasets/v2alpha"). The limiter
// bounds the request rate; pass nil to disable limiting.
func NewHTTPMetadataService(baseURL string, client *http.Client, limiter *rate.Limiter) *HTTPMetadataService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPMetadataService{baseURL: baseURL, client: client, limiter: limiter}
}

// GetMetadata implements MetadataGetter. A 404 response or an empty report
// set is a NotFoundError for that accession.
func (s *HTTPMetadataService) GetMetadata(ctx context.Context, accession string) (json.RawMessage, error) {
	if !ValidAccession(accession) {
		return nil, &bferrors.FetchError{VersionID: accession, StatusCode: 400, Message: "unexpected accession format"}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &bferrors.FetchError{VersionID: accession, Message: "rate limiter wait", Err: err}
		}
	}

	url := fmt.Sprintf("%s/genome/accession/%s/dataset_report", s.baseURL, accession)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &bferrors.FetchError{VersionID: accession, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &bferrors.FetchError{VersionID: accession, Message: "dataset report request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &bferrors.NotFoundError{VersionID: accession}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &bferrors.FetchError{
			VersionID:  accession,
			StatusCode: resp.StatusCode,
			Message:    "dataset report returned " + resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &bferrors.FetchError{VersionID: accession, Message: "read dataset report", Err: err}
	}

	var report datasetReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &bferrors.FetchError{VersionID: accession, Message: "malformed dataset report", Err: err}
	}
	if len(report.Reports) == 0 {
		// The endpoint answers 200 with an empty report set for accessions
		// it has no record of.
		return nil, &bferrors.NotFoundError{VersionID: accession}
	}

	return report.Reports[0], nil
}
