package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
	"github.com/noah-isme/ebd-attendance-api/pkg/export"
)

func TestBuildRankingOrdersByPercentage(t *testing.T) {
	ranking := BuildRanking("02/03/2025", []models.ClassAttendanceTotal{
		{ClassName: "A", Enrolled: 10, Present: 7},
		{ClassName: "B", Enrolled: 4, Present: 4},
	})

	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, "B", ranking.Entries[0].ClassName)
	assert.Equal(t, 100.0, ranking.Entries[0].Percentage)
	assert.Equal(t, 1, ranking.Entries[0].Position)
	assert.Equal(t, "A", ranking.Entries[1].ClassName)
	assert.Equal(t, 70.0, ranking.Entries[1].Percentage)
	require.NotNil(t, ranking.Winner)
	assert.Equal(t, "B", ranking.Winner.ClassName)
	assert.True(t, ranking.Available())
}

func TestBuildRankingEmptyWithoutPresence(t *testing.T) {
	ranking := BuildRanking("02/03/2025", []models.ClassAttendanceTotal{
		{ClassName: "A", Enrolled: 10},
		{ClassName: "B", Enrolled: 4},
	})

	assert.Empty(t, ranking.Entries)
	assert.Nil(t, ranking.Winner)
	assert.False(t, ranking.Available())
}

func TestBuildRankingSkipsEmptyClasses(t *testing.T) {
	ranking := BuildRanking("02/03/2025", []models.ClassAttendanceTotal{
		{ClassName: "Vazia", Enrolled: 0},
		{ClassName: "A", Enrolled: 3, Present: 1},
	})

	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, "A", ranking.Entries[0].ClassName)
	assert.Equal(t, 33.3, ranking.Entries[0].Percentage)
}

func TestBuildRankingTieBreakByName(t *testing.T) {
	ranking := BuildRanking("02/03/2025", []models.ClassAttendanceTotal{
		{ClassName: "Senhoras", Enrolled: 2, Present: 1},
		{ClassName: "Adultos", Enrolled: 4, Present: 2},
		{ClassName: "Zeros", Enrolled: 5},
	})

	require.Len(t, ranking.Entries, 3)
	assert.Equal(t, "Adultos", ranking.Entries[0].ClassName)
	assert.Equal(t, "Senhoras", ranking.Entries[1].ClassName)
	assert.Equal(t, "Zeros", ranking.Entries[2].ClassName)
	assert.Equal(t, 0.0, ranking.Entries[2].Percentage)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 66.7, Percentage(2, 3))
	assert.Equal(t, 100.0, Percentage(5, 5))
	assert.Equal(t, 0.0, Percentage(1, 0))
}

func TestPercentageRoundsHalfToEven(t *testing.T) {
	assert.Equal(t, 6.2, Percentage(1, 16))
	assert.Equal(t, 31.2, Percentage(5, 16))
	assert.Equal(t, 1.2, Percentage(1, 80))
	assert.Equal(t, 18.8, Percentage(3, 16))
}

type rankingFixture struct {
	store *memStore
	repo  *memRankingRepo
	cache *memCache
	svc   *RankingService
	att   *AttendanceService
}

func newRankingFixture(t *testing.T) *rankingFixture {
	t.Helper()
	store := newMemStore()
	seedClass(t, store, "A")
	seedClass(t, store, "B")
	seedClass(t, store, "Vazia")

	students := newStudentService(store, nil)
	_, err := students.Import(context.Background(), ImportStudentsRequest{Names: "a1\na2\na3\na4\na5\na6\na7\na8\na9\na10", ClassName: "A"})
	require.NoError(t, err)
	_, err = students.Import(context.Background(), ImportStudentsRequest{Names: "b1\nb2\nb3\nb4", ClassName: "B"})
	require.NoError(t, err)

	cacheRepo := newMemCache()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	repo := &memRankingRepo{memStore: store}
	svc := NewRankingService(RankingServiceParams{Repo: repo, Cache: cache})
	att := NewAttendanceService(memAttendanceRepo{store}, memStudentRepo{store}, cache, nil, nil, nil)
	return &rankingFixture{store: store, repo: repo, cache: cacheRepo, svc: svc, att: att}
}

func (f *rankingFixture) markPresent(t *testing.T, className string, n int, date string) {
	t.Helper()
	ids := make([]int64, 0, n)
	for _, s := range f.store.students {
		if s.ClassName == className && len(ids) < n {
			ids = append(ids, s.ID)
		}
	}
	_, err := f.att.RecordClassPresence(context.Background(), RecordClassPresenceRequest{ClassName: className, Date: date, StudentIDs: ids})
	require.NoError(t, err)
}

func TestRankingServiceRankForDate(t *testing.T) {
	f := newRankingFixture(t)
	f.markPresent(t, "A", 7, "02/03/2025")
	f.markPresent(t, "B", 4, "02/03/2025")

	ranking, hit, err := f.svc.RankForDate(context.Background(), "2025-03-02")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "02/03/2025", ranking.Date)
	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, "B", ranking.Entries[0].ClassName)
	assert.Equal(t, 70.0, ranking.Entries[1].Percentage)
	assert.Equal(t, "B", ranking.Winner.ClassName)
}

func TestRankingServiceEmptyDate(t *testing.T) {
	f := newRankingFixture(t)
	f.markPresent(t, "A", 3, "02/03/2025")

	ranking, _, err := f.svc.RankForDate(context.Background(), "09/03/2025")
	require.NoError(t, err)
	assert.Empty(t, ranking.Entries)
	assert.Nil(t, ranking.Winner)
}

func TestRankingServiceCachesAndInvalidates(t *testing.T) {
	f := newRankingFixture(t)
	ctx := context.Background()
	f.markPresent(t, "A", 7, "02/03/2025")

	_, hit, err := f.svc.RankForDate(ctx, "02/03/2025")
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := f.svc.RankForDate(ctx, "02/03/2025")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.repo.calls)
	assert.Equal(t, "A", cached.Winner.ClassName)

	f.markPresent(t, "B", 4, "02/03/2025")

	fresh, hit, err := f.svc.RankForDate(ctx, "02/03/2025")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.repo.calls)
	assert.Equal(t, "B", fresh.Winner.ClassName)
}

// invalidatingRankingRepo simulates a presence write landing mid-computation.
type invalidatingRankingRepo struct {
	*memRankingRepo
	cache *CacheService
}

func (r invalidatingRankingRepo) ClassTotals(ctx context.Context, date string) ([]models.ClassAttendanceTotal, error) {
	totals, err := r.memRankingRepo.ClassTotals(ctx, date)
	_ = r.cache.Invalidate(ctx, rankingCacheKey(date))
	return totals, err
}

func TestRankingServiceSkipsCacheWhenInvalidatedDuringCompute(t *testing.T) {
	f := newRankingFixture(t)
	ctx := context.Background()
	f.markPresent(t, "A", 7, "02/03/2025")

	cache := NewCacheService(f.cache, nil, time.Minute, nil, true)
	svc := NewRankingService(RankingServiceParams{Repo: invalidatingRankingRepo{memRankingRepo: f.repo, cache: cache}, Cache: cache})

	_, hit, err := svc.RankForDate(ctx, "02/03/2025")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotContains(t, f.cache.entries, rankingCacheKey("02/03/2025"))

	_, hit, err = svc.RankForDate(ctx, "02/03/2025")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.repo.calls)
}

func TestRankingServiceInvalidDate(t *testing.T) {
	f := newRankingFixture(t)

	_, _, err := f.svc.RankForDate(context.Background(), "not-a-date")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRankingServiceExportCSV(t *testing.T) {
	f := newRankingFixture(t)
	f.markPresent(t, "A", 7, "02/03/2025")
	f.markPresent(t, "B", 4, "02/03/2025")

	file, err := f.svc.Export(context.Background(), "02/03/2025", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "ranking_02-03-2025.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	body := string(file.Payload)
	assert.Contains(t, body, "Classe")
	assert.True(t, strings.HasPrefix(body, "Posição,Classe"))
	assert.Less(t, strings.Index(body, "1,B,4,4,100.0"), strings.Index(body, "2,A,7,10,70.0"))
}

type stubPDF struct{ got export.Dataset }

func (s *stubPDF) Render(data export.Dataset) ([]byte, error) {
	s.got = data
	return []byte("%PDF-stub"), nil
}

func TestRankingServiceExportPDF(t *testing.T) {
	f := newRankingFixture(t)
	pdf := &stubPDF{}
	svc := NewRankingService(RankingServiceParams{Repo: f.repo, PDF: pdf, Config: RankingServiceConfig{ExportTitle: "Ranking Regional"}})

	file, err := svc.Export(context.Background(), "02/03/2025", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "ranking_02-03-2025.pdf", file.Filename)
	assert.Equal(t, "Ranking Regional", pdf.got.Title)
	assert.Contains(t, pdf.got.Notes, "Sem ranking disponível")
}

func TestRankingServiceExportUnsupportedFormat(t *testing.T) {
	f := newRankingFixture(t)

	_, err := f.svc.Export(context.Background(), "02/03/2025", "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
