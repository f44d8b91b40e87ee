package database

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/config"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

func TestBuildListQueryNoFilter(t *testing.T) {
	query, args := buildListQuery(models.DeviceFilter{})

	assert.NotContains(t, query, "WHERE")
	assert.True(t, strings.HasSuffix(query, "ORDER BY last_seen DESC"))
	assert.Empty(t, args)
}

func TestBuildListQueryStatus(t *testing.T) {
	tests := []struct {
		status   string
		wantCond bool
		want     interface{}
	}{
		{status: "active", wantCond: true, want: true},
		{status: "inactive", wantCond: true, want: false},
		{status: "all"},
		{status: ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			query, args := buildListQuery(models.DeviceFilter{Status: tt.status})
			if !tt.wantCond {
				assert.NotContains(t, query, "WHERE")
				assert.NotContains(t, query, "is_active =")
				assert.Empty(t, args)
				return
			}
			assert.Contains(t, query, "WHERE is_active = $1")
			require.Len(t, args, 1)
			assert.Equal(t, tt.want, args[0])
		})
	}
}

func TestBuildListQueryCombined(t *testing.T) {
	query, args := buildListQuery(models.DeviceFilter{
		Status: "active",
		OS:     "windows",
		Search: "  abc ",
	})

	assert.Contains(t, query, "is_active = $1 AND os = $2 AND (custom_name ILIKE $3 OR hostname ILIKE $3)")
	assert.Equal(t, []interface{}{true, "windows", "%abc%"}, args)
}

func TestBuildListQueryEscapesLikeWildcards(t *testing.T) {
	_, args := buildListQuery(models.DeviceFilter{Search: `50%_off\`})

	require.Len(t, args, 1)
	assert.Equal(t, `%50\%\_off\\%`, args[0])
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "fleet",
		Password: "p@ss word",
		Name:     "fleet_monitor",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/fleet_monitor", u.Path)

	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}
