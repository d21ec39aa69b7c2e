package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mchmarny/creditrisk/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DataFileName))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string, started time.Time) *Run {
	return &Run{
		ID:          id,
		Input:       "cs-training.csv",
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
		Rows:        10,
		Balance:     stats.ClassBalance{Negative: 8, Positive: 2, Total: 10},
		BalanceFile: "bar_plot_defaults.png",
		Summaries: []*ColumnSummary{
			{
				Column: "RevolvingUtilizationOfUnsecuredLines",
				Lower:  0,
				Upper:  3,
				File:   "hist_credit_exp.png",
				Summary: stats.Summary{
					Count: 9, Mean: 0.5, Std: 0.25, Min: 0, Q1: 0.2, Median: 0.5, Q3: 0.8, Max: 1.5,
				},
			},
			{
				Column:  "DebtRatio",
				Lower:   0,
				Upper:   3,
				File:    "debt_ratio.png",
				Summary: stats.Summary{Count: 1, Mean: 0.3, Min: 0.3, Q1: 0.3, Median: 0.3, Q3: 0.3, Max: 0.3},
			},
		},
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, driverSQLite, s.Driver())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), path)
		require.NoError(t, err)

		var version int
		require.NoError(t, s.db.QueryRow(selectVersionSQL).Scan(&version))
		assert.Equal(t, 1, version)
		require.NoError(t, s.Close())
	}
}

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		dsn    string
		driver string
		conn   string
	}{
		{dsn: "history.db", driver: driverSQLite, conn: "history.db?" + sqlitePragmas},
		{dsn: "file:x.db?mode=memory", driver: driverSQLite, conn: "file:x.db?mode=memory"},
		{dsn: "postgres://u:p@h/db", driver: driverPostgres, conn: "postgres://u:p@h/db"},
		{dsn: "postgresql://h/db", driver: driverPostgres, conn: "postgresql://h/db"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, conn := resolveDSN(tt.dsn)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.conn, conn)
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE b = ? AND c = ?"

	lite := &Store{driver: driverSQLite}
	assert.Equal(t, q, lite.rebind(q))

	pg := &Store{driver: driverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind(q))
}

func TestListMigrations(t *testing.T) {
	list, err := listMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, 1, list[0].version)
}

func TestNilStore(t *testing.T) {
	var s *Store
	ctx := context.Background()

	assert.ErrorIs(t, s.SaveRun(ctx, testRun("a", time.Now())), ErrNotInitialized)
	_, err := s.ListRuns(ctx, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.GetRun(ctx, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Clear(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, s.Close())
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	in := testRun("run-1", started)
	require.NoError(t, s.SaveRun(ctx, in))

	out, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Input, out.Input)
	assert.True(t, in.StartedAt.Equal(out.StartedAt))
	assert.Equal(t, in.Duration, out.Duration)
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, in.Balance, out.Balance)
	assert.Equal(t, in.BalanceFile, out.BalanceFile)

	require.Len(t, out.Summaries, 2)
	// same order they were saved in
	assert.Equal(t, "RevolvingUtilizationOfUnsecuredLines", out.Summaries[0].Column)
	assert.Equal(t, "DebtRatio", out.Summaries[1].Column)
	assert.Equal(t, in.Summaries[0].Summary, out.Summaries[0].Summary)
	assert.Equal(t, "hist_credit_exp.png", out.Summaries[0].File)
}

func TestSaveRun_SameColumnTwice(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := testRun("twice", time.Now())
	r.Summaries[1] = &ColumnSummary{
		Column:  r.Summaries[0].Column,
		Lower:   0,
		Upper:   1,
		File:    "hist_credit_exp_narrow.png",
		Summary: stats.Summary{Count: 7, Mean: 0.4, Min: 0, Q1: 0.2, Median: 0.4, Q3: 0.6, Max: 0.9},
	}
	require.NoError(t, s.SaveRun(ctx, r))

	out, err := s.GetRun(ctx, "twice")
	require.NoError(t, err)
	require.Len(t, out.Summaries, 2)
	assert.Equal(t, out.Summaries[0].Column, out.Summaries[1].Column)
	assert.Equal(t, 3.0, out.Summaries[0].Upper)
	assert.Equal(t, 1.0, out.Summaries[1].Upper)
	assert.Equal(t, "hist_credit_exp_narrow.png", out.Summaries[1].File)
}

func TestSaveRun_Validation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.SaveRun(ctx, nil))
	assert.Error(t, s.SaveRun(ctx, &Run{}))

	require.NoError(t, s.SaveRun(ctx, testRun("dup", time.Now())))
	assert.Error(t, s.SaveRun(ctx, testRun("dup", time.Now())))

	// failed insert leaves nothing behind
	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRun_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Len(t, runs[0].Summaries, 2)

	_, err = s.ListRuns(ctx, 0)
	assert.Error(t, err)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
}

func TestListRuns_SameSecond(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// text ordering of RFC3339Nano would put .1 after .1234
	require.NoError(t, s.SaveRun(ctx, testRun("z-early", base.Add(100*time.Millisecond))))
	require.NoError(t, s.SaveRun(ctx, testRun("a-late", base.Add(123400*time.Microsecond))))
	require.NoError(t, s.SaveRun(ctx, testRun("m-whole", base)))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "a-late", runs[0].ID)
	assert.Equal(t, "z-early", runs[1].ID)
	assert.Equal(t, "m-whole", runs[2].ID)
	assert.True(t, base.Add(123400*time.Microsecond).Equal(runs[0].StartedAt))
}

func TestLatestRun_Empty(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testRun("a", time.Now())))
	require.NoError(t, s.SaveRun(ctx, testRun("b", time.Now())))

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	var summaries int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM run_summary").Scan(&summaries))
	assert.Zero(t, summaries)
}
