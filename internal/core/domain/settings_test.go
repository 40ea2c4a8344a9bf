package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		SharePoint: SharePointSettings{
			HostURL:         "https://sp.example.com",
			Username:        "admin",
			Password:        "secret",
			SiteCollections: []string{"enterprise"},
		},
		Search: SearchSettings{
			HostURL: "https://search.example.com",
			APIKey:  "key",
		},
	}
}

func TestSettings_Validate_FillsDefaults(t *testing.T) {
	s := validSettings()
	require.NoError(t, s.Validate())

	assert.Equal(t, DefaultStartTime, s.StartTime)
	assert.Equal(t, DefaultRetryCount, s.RetryCount)
	assert.Equal(t, DefaultFetchThreadCount, s.FetchThreadCount)
	assert.Equal(t, DefaultIndexThreadCount, s.IndexThreadCount)
	for _, ot := range AllObjectTypes() {
		assert.True(t, s.ObjectEnabled(ot), ot.String())
	}
}

func TestSettings_Validate_RequiresHostURL(t *testing.T) {
	s := validSettings()
	s.SharePoint.HostURL = ""

	err := s.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSettings_Validate_RequiresCredentials(t *testing.T) {
	s := validSettings()
	s.SharePoint.Username = ""
	s.SharePoint.AccessToken = ""

	err := s.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s.SharePoint.AccessToken = "token"
	assert.NoError(t, s.Validate())
}

func TestSettings_Validate_RejectsUnknownObjectType(t *testing.T) {
	s := validSettings()
	s.Objects = map[string]*FieldFilter{"calendars": nil}

	err := s.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSettings_Validate_RejectsInvertedTimeRange(t *testing.T) {
	s := validSettings()
	s.StartTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s.EndTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := s.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSettings_ObjectEnabled_RespectsConfiguredSubset(t *testing.T) {
	s := validSettings()
	s.Objects = map[string]*FieldFilter{"sites": nil, "lists": nil}
	require.NoError(t, s.Validate())

	assert.True(t, s.ObjectEnabled(ObjectSites))
	assert.False(t, s.ObjectEnabled(ObjectListItems))
}

func TestSettings_Schema_AppliesFilter(t *testing.T) {
	s := validSettings()
	s.Objects = map[string]*FieldFilter{
		"sites": {IncludeFields: []string{"Title"}},
	}
	require.NoError(t, s.Validate())

	schema := s.Schema(ObjectSites)
	assert.Contains(t, schema, "title")
	assert.Contains(t, schema, "id")
	assert.NotContains(t, schema, "url")
}
