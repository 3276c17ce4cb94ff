// Package ncbi provides version discovery and metadata retrieval for NCBI
// assembly accessions, with read-through caching in front of the external
// services.
package ncbi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// strictAccessionRE matches a fully-qualified versioned accession, e.g.
// GCA_000001405.39. Accessions are validated against this before any
// external request is issued.
var strictAccessionRE = regexp.MustCompile(`^GC[AF]_\d{9}\.\d+$`)

// baseAccessionRE extracts the unversioned base from an accession.
var baseAccessionRE = regexp.MustCompile(`^GC[AF]_\d{9}`)

// ParseAccession splits a versioned accession into its base and version
// number. An accession without a version suffix is version 1.
func ParseAccession(accession string) (base string, version int, err error) {
	base = baseAccessionRE.FindString(accession)
	if base == "" {
		return "", 0, fmt.Errorf("malformed accession %q", accession)
	}

	rest := accession[len(base):]
	if rest == "" {
		return base, 1, nil
	}
	if !strings.HasPrefix(rest, ".") {
		return "", 0, fmt.Errorf("malformed accession %q", accession)
	}

	version, err = strconv.Atoi(rest[1:])
	if err != nil || version < 1 {
		return "", 0, fmt.Errorf("malformed accession version in %q", accession)
	}
	return base, version, nil
}

// ValidAccession reports whether accession is a fully-qualified versioned
// accession safe to interpolate into a request path.
func ValidAccession(accession string) bool {
	return strictAccessionRE.MatchString(accession)
}

// VersionOf returns the version number of a versioned accession, or 1 when
// no suffix is present.
func VersionOf(accession string) int {
	_, v, err := ParseAccession(accession)
	if err != nil {
		return 1
	}
	return v
}

// AssemblyID formats an accession as a stable identifier with the version
// joined by an underscore: GCA_000222935.2 -> GCA_000222935_2. Used for
// historical rows so IDs stay filesystem- and URL-safe.
func AssemblyID(accession string) string {
	return strings.ReplaceAll(accession, ".", "_")
}

// listingPath derives the genomes directory path for a base accession from
// its digit triplets: GCA_000002035 -> GCA/000/002/035.
func listingPath(base string) (string, error) {
	if !baseAccessionRE.MatchString(base) || len(base) != 13 {
		return "", fmt.Errorf("malformed base accession %q", base)
	}
	return fmt.Sprintf("%s/%s/%s/%s", base[0:3], base[4:7], base[7:10], base[10:13]), nil
}
