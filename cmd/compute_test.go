package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/access-cli/internal/access"
	"github.com/sells-group/access-cli/internal/config"
	"github.com/sells-group/access-cli/internal/store"
)

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestBuildRegistry_DefaultsToPresets(t *testing.T) {
	reg, err := buildRegistry(config.ComputeConfig{})
	require.NoError(t, err)
	assert.Equal(t, 28, reg.Len())
}

func TestBuildSource_DB(t *testing.T) {
	st := testStore(t)

	src, err := buildSource(context.Background(), st, "db")
	require.NoError(t, err)
	assert.IsType(t, &store.Source{}, src)
}

func TestBuildSource_MatrixNeedsDestinations(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.UpsertLocations(context.Background(), []store.Location{
		{ID: "O1", Kind: store.KindOrigin, Lng: 1, Lat: 1},
	}))

	cfg = &config.Config{}
	_, err := buildSource(context.Background(), st, "matrix")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no destination locations")
}

func TestBuildSource_Unknown(t *testing.T) {
	st := testStore(t)

	_, err := buildSource(context.Background(), st, "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cost source "carrier-pigeon"`)
}

func TestParseLocationKind(t *testing.T) {
	kind, err := parseLocationKind("origin")
	require.NoError(t, err)
	assert.Equal(t, store.KindOrigin, kind)

	kind, err = parseLocationKind("destination")
	require.NoError(t, err)
	assert.Equal(t, store.KindDestination, kind)

	_, err = parseLocationKind("road")
	require.Error(t, err)
}

func TestLogReport_NilSafe(t *testing.T) {
	logReport("run-1", nil, 0)
	logReport("run-1", &access.Report{OriginsScored: 1}, 0)
}
