package migrations

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrationsOrdersByNumericVersion(t *testing.T) {
	source := fstest.MapFS{
		"V10__later.sql": {Data: []byte("SELECT 1")},
		"V2__second.sql": {Data: []byte("SELECT 1")},
		"V1__first.sql":  {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("ignored")},
	}
	migs, err := listMigrations(source)
	require.NoError(t, err)
	names := []string{}
	for _, m := range migs {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"V1__first.sql", "V2__second.sql", "V10__later.sql"}, names)
}

func TestListMigrationsRejectsUnversionedFiles(t *testing.T) {
	_, err := listMigrations(fstest.MapFS{"points.sql": {Data: []byte("SELECT 1")}})
	require.Error(t, err)
}

func TestEmbeddedSourceIsOrdered(t *testing.T) {
	migs, err := listMigrations(Source())
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, "1", migs[0].Version)
	for _, m := range migs {
		_, err := fs.ReadFile(Source(), m.Name)
		require.NoError(t, err)
	}
}

func TestParseVersion(t *testing.T) {
	cases := map[string]string{
		"V1__points.sql": "1",
		"V12__a__b.sql":  "12",
		"points.sql":     "",
		"V3.sql":         "",
	}
	for name, want := range cases {
		assert.Equal(t, want, parseVersion(name), name)
	}
}
