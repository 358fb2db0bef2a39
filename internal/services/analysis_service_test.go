package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/engine"
	"github.com/Vedant23258/AgrisIntelligence/internal/ingest"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
	"github.com/Vedant23258/AgrisIntelligence/internal/store"
)

const retailCSV = "date,product,sales_quantity,sales_value\n" +
	"2024-02-20,Onions,1050,26250\n" +
	"2024-03-10,Onions,1250,35000\n" +
	"2024-02-21,Potatoes,900,\n" +
	"2024-03-06,Potatoes,600,\n"

const mandiCSV = "date,product,price,location\n" +
	"2024-02-20,Onions,22,Lasalgaon\n" +
	"2024-02-25,Onions,23,Lasalgaon\n" +
	"2024-03-05,Onions,27,Lasalgaon\n" +
	"2024-03-10,Onions,28.5,Lasalgaon\n" +
	"2024-02-21,Potatoes,20,Agra\n" +
	"2024-02-24,Potatoes,20,Agra\n" +
	"2024-03-04,Potatoes,16,Agra\n" +
	"2024-03-09,Potatoes,15,Agra\n"

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, ttl time.Duration) (*AnalysisService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	svc := NewAnalysisService(config.Config{CacheTTLAnalysis: ttl}, st, engine.New(config.DefaultEngine()), NewMemoryCache())
	svc.now = func() time.Time { return fixedNow }
	return svc, st
}

func loadFixtures(t *testing.T, svc *AnalysisService) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.IngestRetail(ctx, "retail.csv", strings.NewReader(retailCSV))
	require.NoError(t, err)
	_, err = svc.IngestMandi(ctx, "mandi.csv", strings.NewReader(mandiCSV))
	require.NoError(t, err)
}

func TestIngestRetail(t *testing.T) {
	svc, st := newTestService(t, time.Minute)

	res, err := svc.IngestRetail(context.Background(), "retail.csv", strings.NewReader(retailCSV))
	require.NoError(t, err)
	assert.Equal(t, "retail.csv", res.Filename)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 2, res.Products)
	assert.True(t, res.Processed)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, "2024-02-20", res.DateStart)
	assert.Equal(t, "2024-03-10", res.DateEnd)

	meta, err := st.Meta(context.Background(), store.KindRetail)
	require.NoError(t, err)
	assert.Equal(t, res.BatchID, meta.Version)
	assert.True(t, meta.UploadedAt.Equal(fixedNow))
}

func TestIngestRejectedFileKeepsPreviousData(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	loadFixtures(t, svc)

	_, err := svc.IngestMandi(context.Background(), "bad.csv", strings.NewReader("date,product,price\n2024-03-01,Onions,abc\n"))
	var rej *ingest.RejectionError
	require.True(t, errors.As(err, &rej))

	records, err := svc.MandiRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 8)
}

func TestReportCachesPerDatasetVersion(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	loadFixtures(t, svc)
	ctx := context.Background()

	rep, meta, err := svc.Report(ctx, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", meta.Source)
	assert.Equal(t, "2024-03-15T09:00:00Z", meta.GeneratedAt)
	require.Len(t, rep.Gaps, 2)
	assert.Equal(t, "Onions", rep.Gaps[0].Product)
	assert.Equal(t, models.SignalOpportunity, rep.Gaps[0].SignalLevel)

	cached, meta, err := svc.Report(ctx, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cache", meta.Source)
	assert.Equal(t, rep.Gaps, cached.Gaps)
	assert.Equal(t, rep.Recommendations, cached.Recommendations)

	_, meta, err = svc.Report(ctx, AnalysisOptions{WindowDays: 7})
	require.NoError(t, err)
	assert.Equal(t, "fresh", meta.Source, "a different window is a different key")

	_, err = svc.IngestRetail(ctx, "retail.csv", strings.NewReader(retailCSV))
	require.NoError(t, err)
	_, meta, err = svc.Report(ctx, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", meta.Source, "a new upload invalidates cached reports")
}

func TestReportWithoutCacheTTL(t *testing.T) {
	svc, _ := newTestService(t, 0)
	loadFixtures(t, svc)

	for i := 0; i < 2; i++ {
		_, meta, err := svc.Report(context.Background(), AnalysisOptions{})
		require.NoError(t, err)
		assert.Equal(t, "fresh", meta.Source)
	}
}

func TestReportEmptyStore(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)

	rep, _, err := svc.Report(context.Background(), AnalysisOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.Demand)
	assert.Empty(t, rep.Gaps)
	assert.Empty(t, rep.Alerts)
}

func TestReportConcurrentCallers(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	loadFixtures(t, svc)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Report(context.Background(), AnalysisOptions{})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestReportOutlivesCancelledCaller(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	loadFixtures(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, meta, err := svc.Report(ctx, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", meta.Source)
	assert.NotEmpty(t, rep.Gaps)

	_, meta, err = svc.Report(context.Background(), AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cache", meta.Source)
}

func TestReportStoreClosed(t *testing.T) {
	svc, st := newTestService(t, time.Minute)
	require.NoError(t, st.Close())

	_, _, err := svc.Report(context.Background(), AnalysisOptions{})
	var se *store.Error
	assert.True(t, errors.As(err, &se))
}

func TestAnalysisCacheKey(t *testing.T) {
	a := models.DatasetMeta{Version: "a"}
	b := models.DatasetMeta{Version: "b"}
	asOf := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	k1 := analysisCacheKey(a, b, AnalysisOptions{}, 14)
	assert.True(t, strings.HasPrefix(k1, "analysis:v1:latest:14:"))
	assert.Equal(t, k1, analysisCacheKey(a, b, AnalysisOptions{}, 14))
	assert.NotEqual(t, k1, analysisCacheKey(b, a, AnalysisOptions{}, 14))
	assert.NotEqual(t, k1, analysisCacheKey(a, b, AnalysisOptions{AsOf: asOf}, 14))
	assert.Contains(t, analysisCacheKey(a, b, AnalysisOptions{AsOf: asOf}, 14), ":2024-03-11:")
}

func TestPingAndDatasets(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	loadFixtures(t, svc)

	status := svc.Ping(context.Background())
	assert.True(t, status["store:memory"].Ok)
	assert.True(t, status["cache:memory"].Ok)

	sets, err := svc.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "retail.csv", sets["retail"].Filename)
	assert.Equal(t, 8, sets["mandi"].Rows)
}
