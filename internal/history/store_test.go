package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLoadSession(t *testing.T) {
	s := testStore(t)

	started := time.Date(2026, 1, 26, 21, 55, 10, 0, time.UTC)
	id, err := s.RecordSession(SessionRecord{
		Version:    "1.24",
		StartedAt:  started,
		ReportPath: "/results/linux_amd64/go1.24/2026-01-26_21-55-10.txt",
		Retries:    2,
		Status:     StatusUnresolved,
		Unresolved: []string{"BenchmarkGC", "BenchmarkPool/size=64"},
	}, []Measurement{
		{Name: "BenchmarkGC", Samples: 30, Mean: 1234.5, CV: 18.2, Category: "high"},
		{Name: "BenchmarkMap", Samples: 20, Mean: 567.3, CV: 1.1, Category: "good"},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	sessions, err := s.LatestSessions("1.24", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	rec := sessions[0]
	assert.Equal(t, "1.24", rec.Version)
	assert.Equal(t, 2, rec.Retries)
	assert.Equal(t, StatusUnresolved, rec.Status)
	assert.Equal(t, []string{"BenchmarkGC", "BenchmarkPool/size=64"}, rec.Unresolved)
	assert.True(t, rec.StartedAt.Equal(started))

	ms, err := s.Measurements(id)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "BenchmarkGC", ms[0].Name)
	assert.Equal(t, 18.2, ms[0].CV)
}

func TestLatestSessionsOrder(t *testing.T) {
	s := testStore(t)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.RecordSession(SessionRecord{
			Version:    "1.25",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			ReportPath: "r",
			Status:     StatusClean,
		}, nil)
		require.NoError(t, err)
	}

	sessions, err := s.LatestSessions("1.25", 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].StartedAt.After(sessions[1].StartedAt))
}

func TestSummary(t *testing.T) {
	s := testStore(t)

	_, err := s.RecordSession(SessionRecord{
		Version: "1.24", StartedAt: time.Now().Add(-time.Hour), ReportPath: "old", Status: StatusFailed,
	}, nil)
	require.NoError(t, err)
	_, err = s.RecordSession(SessionRecord{
		Version: "1.24", StartedAt: time.Now(), ReportPath: "new", Status: StatusClean,
	}, nil)
	require.NoError(t, err)
	_, err = s.RecordSession(SessionRecord{
		Version: "1.25", StartedAt: time.Now(), ReportPath: "p", Status: StatusUnresolved,
		Unresolved: []string{"BenchmarkX"},
	}, nil)
	require.NoError(t, err)

	summaries, err := s.Summary()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "1.24", summaries[0].Version)
	assert.Equal(t, 2, summaries[0].Sessions)
	assert.Equal(t, StatusClean, summaries[0].LastStatus)
	assert.Equal(t, "new", summaries[0].ReportPath)

	assert.Equal(t, "1.25", summaries[1].Version)
	assert.Equal(t, 1, summaries[1].Unresolved)
}

func TestEmptyStore(t *testing.T) {
	s := testStore(t)

	sessions, err := s.LatestSessions("1.24", 5)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	summaries, err := s.Summary()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
