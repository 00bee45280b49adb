package export_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/benny59/architetti/internal/db"
	"github.com/benny59/architetti/internal/export"
	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/store"
)

func TestRecords_WritesPartition(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	st := store.NewSQLStore(conn)
	defer st.Close()

	require.NoError(t, st.EnsurePartitions(ctx, []string{"genova"}))
	require.NoError(t, st.Insert(ctx, "genova", model.Record{
		Title: "Concorso A", Date: "01/02/2026", Category: "Bando", Summary: "s",
		URL: "https://example.org/a", Checksum: "c1",
	}))
	require.NoError(t, st.Insert(ctx, "genova", model.Record{
		Title: "Concorso B", Date: model.DateNotAvailable, Category: "Bando", Summary: "s",
		URL: model.URLNotAvailable, Checksum: "c2",
	}))

	var buf bytes.Buffer
	n, err := export.Records(ctx, st, "genova", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("genova")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Titolo", rows[0][1])
	assert.Equal(t, "Concorso B", rows[1][1])
	assert.Equal(t, "Concorso A", rows[2][1])

	linked, target, err := f.GetCellHyperLink("genova", "F3")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "https://example.org/a", target)
}

func TestRecords_UnknownPartition(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	st := store.NewSQLStore(conn)
	defer st.Close()

	var buf bytes.Buffer
	_, err = export.Records(ctx, st, "missing", &buf)
	assert.Error(t, err)
}

func TestWorkbook_EmptyHasHeaderOnly(t *testing.T) {
	f, err := export.Workbook("dummy_site", nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("dummy_site")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ID", rows[0][0])
}
