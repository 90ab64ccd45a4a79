package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ebd-attendance-api/internal/models"
	appErrors "github.com/noah-isme/ebd-attendance-api/pkg/errors"
	"github.com/noah-isme/ebd-attendance-api/pkg/export"
)

const rankingCachePattern = "ranking:*"

func rankingCacheKey(date string) string {
	return "ranking:" + date
}

type rankingRepository interface {
	ClassTotals(ctx context.Context, date string) ([]models.ClassAttendanceTotal, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// RankingServiceConfig tunes ranking behaviour.
type RankingServiceConfig struct {
	CacheTTL    time.Duration
	ExportTitle string
}

// RankingExport is a rendered ranking file.
type RankingExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// RankingService computes per-date class rankings by attendance percentage.
type RankingService struct {
	repo    rankingRepository
	cache   *CacheService
	metrics *MetricsService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
	cfg     RankingServiceConfig
}

// RankingServiceParams groups constructor dependencies.
type RankingServiceParams struct {
	Repo    rankingRepository
	Cache   *CacheService
	Metrics *MetricsService
	CSV     csvRenderer
	PDF     pdfRenderer
	Logger  *zap.Logger
	Config  RankingServiceConfig
}

// NewRankingService constructs a RankingService with sane defaults.
func NewRankingService(params RankingServiceParams) *RankingService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.ExportTitle == "" {
		cfg.ExportTitle = "Ranking EBD"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &RankingService{
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// RankForDate returns the ranking for date and whether it was served from cache.
func (s *RankingService) RankForDate(ctx context.Context, rawDate string) (*models.Ranking, bool, error) {
	date, err := resolveAttendanceDate(rawDate, s.now)
	if err != nil {
		return nil, false, err
	}

	key := rankingCacheKey(date)
	var cached models.Ranking
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	generation := s.cache.Generation()
	start := time.Now()
	totals, err := s.repo.ClassTotals(ctx, date)
	s.metrics.ObserveDBQuery("ranking_class_totals", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to compute ranking")
	}

	ranking := BuildRanking(date, totals)
	// a write that landed while computing makes this result stale
	_, _ = s.cache.SetIfCurrent(ctx, generation, key, ranking, s.cfg.CacheTTL)
	s.logger.Debug("ranking computed", zap.String("date", date), zap.Int("classes", len(ranking.Entries)))
	return ranking, false, nil
}

// Export renders the ranking for date as CSV or PDF.
func (s *RankingService) Export(ctx context.Context, rawDate, format string) (*RankingExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}

	ranking, _, err := s.RankForDate(ctx, rawDate)
	if err != nil {
		return nil, err
	}

	dataset := s.dataset(ranking)
	var payload []byte
	contentType := "text/csv; charset=utf-8"
	switch format {
	case FormatPDF:
		payload, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render ranking")
	}

	return &RankingExport{
		Filename:    fmt.Sprintf("ranking_%s.%s", strings.ReplaceAll(ranking.Date, "/", "-"), format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func (s *RankingService) dataset(ranking *models.Ranking) export.Dataset {
	headers := []string{"Posição", "Classe", "Presentes", "Matriculados", "Freq %"}
	rows := make([]map[string]string, 0, len(ranking.Entries))
	for _, e := range ranking.Entries {
		rows = append(rows, map[string]string{
			headers[0]: strconv.Itoa(e.Position),
			headers[1]: e.ClassName,
			headers[2]: strconv.Itoa(e.Present),
			headers[3]: strconv.Itoa(e.Enrolled),
			headers[4]: strconv.FormatFloat(e.Percentage, 'f', 1, 64),
		})
	}
	notes := []string{"Data: " + ranking.Date}
	if ranking.Winner != nil {
		notes = append(notes, "Vencedora: "+ranking.Winner.ClassName)
	} else {
		notes = append(notes, "Sem ranking disponível")
	}
	return export.Dataset{Title: s.cfg.ExportTitle, Notes: notes, Headers: headers, Rows: rows}
}

// BuildRanking turns per-class totals into a ranking. Classes without students are dropped,
// and when nobody at all was present the ranking is empty. Equal percentages are ordered by
// class name.
func BuildRanking(date string, totals []models.ClassAttendanceTotal) *models.Ranking {
	ranking := &models.Ranking{Date: date, Entries: []models.RankingEntry{}}

	anyPresent := false
	for _, t := range totals {
		if t.Enrolled > 0 && t.Present > 0 {
			anyPresent = true
			break
		}
	}
	if !anyPresent {
		return ranking
	}

	for _, t := range totals {
		if t.Enrolled <= 0 {
			continue
		}
		ranking.Entries = append(ranking.Entries, models.RankingEntry{
			ClassName:  t.ClassName,
			Present:    t.Present,
			Enrolled:   t.Enrolled,
			Percentage: Percentage(t.Present, t.Enrolled),
		})
	}

	sort.SliceStable(ranking.Entries, func(i, j int) bool {
		a, b := ranking.Entries[i], ranking.Entries[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return a.ClassName < b.ClassName
	})
	for i := range ranking.Entries {
		ranking.Entries[i].Position = i + 1
	}
	winner := ranking.Entries[0]
	ranking.Winner = &winner
	return ranking
}

// Percentage returns present/enrolled as a percentage rounded to one decimal place,
// ties to even.
func Percentage(present, enrolled int) float64 {
	if enrolled <= 0 {
		return 0
	}
	return math.RoundToEven(float64(present)/float64(enrolled)*1000) / 10
}
