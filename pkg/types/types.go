package types

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Validation errors
var (
	ErrEmptyID             = errors.New("id cannot be empty")
	ErrInvalidBaseURL      = errors.New("invalid base URL")
	ErrInvalidVersionedURL = errors.New("invalid versioned URL")
	ErrInvalidVersion      = errors.New("version must be a positive integer")
	ErrUnknownTypeKind     = errors.New("unknown ontology type kind")
)

// maxURLLength mirrors the limit enforced by the ontology service.
const maxURLLength = 2048

// BaseURL is the version-independent identifier of an ontology type.
// It is an absolute http(s) URL ending in a slash.
type BaseURL string

// Validate checks that the base URL is absolute, http(s) and slash-terminated.
func (b BaseURL) Validate() error {
	s := string(b)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	if len(s) > maxURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidBaseURL, maxURLLength)
	}
	if !strings.HasSuffix(s, "/") {
		return fmt.Errorf("%w: %q must end with a slash", ErrInvalidBaseURL, s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http or https", ErrInvalidBaseURL, s)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidBaseURL, s)
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (b BaseURL) IsValid() bool { return b.Validate() == nil }

func (b BaseURL) String() string { return string(b) }

var versionedURLPattern = regexp.MustCompile(`^(.+/)v/(\d+)$`)

// VersionedURL addresses one immutable revision of an ontology type: <BaseURL>v/<version>.
type VersionedURL string

// NewVersionedURL joins a base URL and a version.
func NewVersionedURL(base BaseURL, version uint32) (VersionedURL, error) {
	if err := base.Validate(); err != nil {
		return "", err
	}
	if version == 0 {
		return "", ErrInvalidVersion
	}
	return VersionedURL(string(base) + "v/" + strconv.FormatUint(uint64(version), 10)), nil
}

// ParseVersionedURL splits a versioned URL into its base URL and version.
func ParseVersionedURL(s string) (BaseURL, uint32, error) {
	if len(s) > maxURLLength {
		return "", 0, fmt.Errorf("%w: longer than %d characters", ErrInvalidVersionedURL, maxURLLength)
	}
	m := versionedURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q does not end in v/<version>", ErrInvalidVersionedURL, s)
	}
	base := BaseURL(m[1])
	if err := base.Validate(); err != nil {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrInvalidVersionedURL, s, err)
	}
	v, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil || v == 0 {
		return "", 0, fmt.Errorf("%w: %q: %v", ErrInvalidVersionedURL, s, ErrInvalidVersion)
	}
	return base, uint32(v), nil
}

// Validate checks the URL shape.
func (v VersionedURL) Validate() error {
	_, _, err := ParseVersionedURL(string(v))
	return err
}

// BaseURL returns the base URL part, or "" if the URL is malformed.
func (v VersionedURL) BaseURL() BaseURL {
	base, _, err := ParseVersionedURL(string(v))
	if err != nil {
		return ""
	}
	return base
}

// Version returns the version part, or 0 if the URL is malformed.
func (v VersionedURL) Version() uint32 {
	_, version, err := ParseVersionedURL(string(v))
	if err != nil {
		return 0
	}
	return version
}

// RecordID returns the record id form of the URL.
func (v VersionedURL) RecordID() (OntologyTypeRecordID, error) {
	base, version, err := ParseVersionedURL(string(v))
	if err != nil {
		return OntologyTypeRecordID{}, err
	}
	return OntologyTypeRecordID{BaseURL: base, Version: version}, nil
}

func (v VersionedURL) String() string { return string(v) }

// OntologyTypeRecordID is the structured form of a VersionedURL.
type OntologyTypeRecordID struct {
	BaseURL BaseURL `json:"baseUrl"`
	Version uint32  `json:"version"`
}

// VersionedURL joins the record id back into URL form.
func (r OntologyTypeRecordID) VersionedURL() VersionedURL {
	return VersionedURL(string(r.BaseURL) + "v/" + strconv.FormatUint(uint64(r.Version), 10))
}

// OntologyTypeKind discriminates the three ontology element kinds.
type OntologyTypeKind string

const (
	DataTypeKind     OntologyTypeKind = "dataType"
	PropertyTypeKind OntologyTypeKind = "propertyType"
	EntityTypeKind   OntologyTypeKind = "entityType"
)

// Validate rejects kinds outside the fixed vocabulary.
func (k OntologyTypeKind) Validate() error {
	switch k {
	case DataTypeKind, PropertyTypeKind, EntityTypeKind:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTypeKind, string(k))
	}
}
