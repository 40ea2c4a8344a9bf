package domain

import (
	"fmt"
	"time"
)

// Default values applied by Settings.Validate.
const (
	// DefaultRetryCount bounds retries of transient source failures.
	DefaultRetryCount = 3

	// DefaultFetchThreadCount sizes the fetch worker pool.
	DefaultFetchThreadCount = 5

	// DefaultIndexThreadCount sizes the index writer pool.
	DefaultIndexThreadCount = 5
)

// DefaultStartTime bounds full syncs when no start_time is configured.
var DefaultStartTime = time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC)

// SharePointSettings configures access to the SharePoint Server farm.
type SharePointSettings struct {
	// HostURL is the base URL of the farm, e.g. https://sp.example.com.
	HostURL string `yaml:"host_url"`

	// Domain, Username and Password configure basic authentication as
	// DOMAIN\username. AccessToken switches the client to bearer auth.
	Domain      string `yaml:"domain"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	AccessToken string `yaml:"access_token"`

	// SiteCollections lists the collection names to sync.
	SiteCollections []string `yaml:"site_collections"`

	// SecureConnection enables TLS verification; CertificatePath
	// optionally points at a CA bundle.
	SecureConnection bool   `yaml:"secure_connection"`
	CertificatePath  string `yaml:"certificate_path"`
}

// SearchSettings configures the target search index.
type SearchSettings struct {
	HostURL  string `yaml:"host_url"`
	APIKey   string `yaml:"api_key"`
	SourceID string `yaml:"source_id"`
}

// Settings is the validated configuration record passed into every
// component constructor. There is no process-wide configuration state.
type Settings struct {
	SharePoint SharePointSettings `yaml:"sharepoint"`
	Search     SearchSettings     `yaml:"search_index"`

	// Objects selects which object types are synced and optionally
	// narrows their field schemas. A type absent from the map is
	// skipped entirely.
	Objects map[string]*FieldFilter `yaml:"objects"`

	// EnablePermissions attaches _allow_permissions to every document.
	EnablePermissions bool `yaml:"enable_document_permission"`

	// StartTime and EndTime bound full syncs. A zero EndTime means the
	// run start instant.
	StartTime time.Time `yaml:"start_time"`
	EndTime   time.Time `yaml:"end_time"`

	// ExtractorHostURL points at the text extraction service. Empty
	// disables binary content extraction.
	ExtractorHostURL string `yaml:"extractor_host_url"`

	// StatePath is the directory holding the checkpoint and inventory
	// database. Empty selects the user default.
	StatePath string `yaml:"state_path"`

	// UserMappingPath optionally points at a CSV rewriting SharePoint
	// user names to search index user names during permission sync.
	UserMappingPath string `yaml:"user_mapping_path"`

	RetryCount       int `yaml:"retry_count"`
	FetchThreadCount int `yaml:"fetch_thread_count"`
	IndexThreadCount int `yaml:"index_thread_count"`

	Verbose bool `yaml:"verbose"`
}

// ObjectEnabled reports whether documents of type t should be produced.
func (s *Settings) ObjectEnabled(t ObjectType) bool {
	_, ok := s.Objects[t.String()]
	return ok
}

// Filter returns the configured field filter for t, which may be nil.
func (s *Settings) Filter(t ObjectType) *FieldFilter {
	return s.Objects[t.String()]
}

// Schema resolves the projected schema for t through the configured filter.
func (s *Settings) Schema(t ObjectType) map[string]string {
	return s.Filter(t).Apply(t)
}

// Validate checks required fields and fills defaults in place.
func (s *Settings) Validate() error {
	if s.SharePoint.HostURL == "" {
		return fmt.Errorf("%w: sharepoint.host_url is required", ErrInvalidConfig)
	}
	if len(s.SharePoint.SiteCollections) == 0 {
		return fmt.Errorf("%w: sharepoint.site_collections must not be empty", ErrInvalidConfig)
	}
	if s.SharePoint.AccessToken == "" && (s.SharePoint.Username == "" || s.SharePoint.Password == "") {
		return fmt.Errorf("%w: sharepoint credentials require either access_token or username and password", ErrInvalidConfig)
	}
	if s.Search.HostURL == "" {
		return fmt.Errorf("%w: search_index.host_url is required", ErrInvalidConfig)
	}
	if s.Search.APIKey == "" {
		return fmt.Errorf("%w: search_index.api_key is required", ErrInvalidConfig)
	}

	if s.Objects == nil {
		s.Objects = make(map[string]*FieldFilter, 4)
		for _, t := range AllObjectTypes() {
			s.Objects[t.String()] = nil
		}
	}
	for name := range s.Objects {
		if _, err := ParseObjectType(name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if s.StartTime.IsZero() {
		s.StartTime = DefaultStartTime
	}
	s.StartTime = s.StartTime.UTC()
	if !s.EndTime.IsZero() {
		s.EndTime = s.EndTime.UTC()
		if !s.EndTime.After(s.StartTime) {
			return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidConfig)
		}
	}

	if s.RetryCount <= 0 {
		s.RetryCount = DefaultRetryCount
	}
	if s.FetchThreadCount <= 0 {
		s.FetchThreadCount = DefaultFetchThreadCount
	}
	if s.IndexThreadCount <= 0 {
		s.IndexThreadCount = DefaultIndexThreadCount
	}
	return nil
}
