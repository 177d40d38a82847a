// service.go: orchestration of a per-upload analysis request
package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/datastore"
	"github.com/speechcoach/speechcoach-go/internal/errors"
	"github.com/speechcoach/speechcoach-go/internal/logging"
	"github.com/speechcoach/speechcoach-go/internal/observability"
)

// Oracle produces a raw analysis document for an audio recording. The payload
// it returns is untrusted and must pass Validate before use.
type Oracle interface {
	Analyze(ctx context.Context, audio []byte, mimeType string) ([]byte, error)
}

// Service runs the full analysis pipeline for uploads: cache and database
// lookup, oracle invocation, schema validation, normalization, scoring, and
// persistence. Analyses are cached per upload ID; concurrent requests for the
// same upload may both reach the oracle, last write wins.
type Service struct {
	ds       datastore.Interface
	oracle   Oracle
	hotCache *cache.Cache
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates an analysis service. metrics may be nil in tests.
func NewService(settings *conf.Settings, ds datastore.Interface, oracle Oracle, metrics *observability.Metrics) *Service {
	ttl := time.Duration(settings.Analysis.HotCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ds:       ds,
		oracle:   oracle,
		hotCache: cache.New(ttl, 2*ttl),
		cacheTTL: ttl,
		metrics:  metrics,
		logger:   logger,
	}
}

// Get returns the analysis for an upload, running the pipeline if none is
// stored yet. With force set, any cached or stored analysis is ignored and the
// oracle is consulted again; the previous analysis survives if the retry
// fails. The upload must belong to the given project.
func (s *Service) Get(ctx context.Context, projectID uint, uploadID string, force bool) (*Result, error) {
	project, err := s.ds.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	upload, err := s.ds.GetProjectUpload(projectID, uploadID)
	if err != nil {
		return nil, err
	}

	if !force {
		if cached, found := s.hotCache.Get(uploadID); found {
			s.recordCacheHit()
			return cached.(*Result), nil
		}
		result, err := s.loadStored(&project, uploadID)
		if err == nil && result != nil {
			s.recordCacheHit()
			s.hotCache.Set(uploadID, result, s.cacheTTL)
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}

	s.recordCacheMiss()
	return s.run(ctx, &project, &upload)
}

// Invalidate drops the cached analysis for an upload. Callers must invoke it
// whenever the upload or its analysis is deleted.
func (s *Service) Invalidate(uploadID string) {
	s.hotCache.Delete(uploadID)
}

// loadStored fetches a persisted analysis and decodes its payload. Records
// written before scoring existed have no performance block; it is backfilled
// against the project's current target and persisted so the next read is
// cheap. A missing analysis returns (nil, nil).
func (s *Service) loadStored(project *datastore.Project, uploadID string) (*Result, error) {
	stored, err := s.ds.GetAnalysis(uploadID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(stored.Payload, &result); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryAnalysis).
			Component("analysis").
			Context("operation", "decode_stored_analysis").
			Context("upload_id", uploadID).
			Build()
	}

	if result.Performance == nil {
		perf := Score(&result, project.Timeframe)
		result.Performance = &perf
		if err := s.persist(uploadID, &result); err != nil {
			return nil, err
		}
		s.logger.Info("backfilled performance score for stored analysis",
			"upload_id", uploadID, "grade", perf.OverallGrade)
	}

	return &result, nil
}

// run executes the oracle-backed pipeline and persists the outcome.
func (s *Service) run(ctx context.Context, project *datastore.Project, upload *datastore.Upload) (*Result, error) {
	start := time.Now()

	raw, err := s.oracle.Analyze(ctx, upload.Audio, upload.MimeType)
	if err != nil {
		s.recordFailure()
		return nil, err
	}

	result, err := Validate(raw)
	if err != nil {
		s.recordFailure()
		if s.metrics != nil {
			s.metrics.Analysis.SchemaViolations.Inc()
		}
		var sv *SchemaViolationError
		if errors.As(err, &sv) {
			s.logger.Warn("oracle response failed schema validation",
				"upload_id", upload.ID, "violations", sv.Fields)
			return nil, errors.New(err).
				Category(errors.CategoryValidation).
				Component("analysis").
				Context("operation", "validate_oracle_response").
				Context("upload_id", upload.ID).
				Context("violation_count", len(sv.Fields)).
				Build()
		}
		return nil, err
	}

	Normalize(result)

	perf := Score(result, project.Timeframe)
	result.Performance = &perf

	if err := s.persist(upload.ID, result); err != nil {
		s.recordFailure()
		return nil, err
	}

	s.hotCache.Set(upload.ID, result, s.cacheTTL)

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.Analysis.AnalysesCompleted.Inc()
		s.metrics.Analysis.RecordAnalysisDuration(elapsed.Seconds())
	}
	s.logger.Info("analysis completed",
		"upload_id", upload.ID,
		"project_id", project.ID,
		"grade", perf.OverallGrade,
		"word_count", result.WordCount,
		"duration_ms", elapsed.Milliseconds())

	return result, nil
}

// persist writes the analysis payload and its denormalized columns. The
// datastore upserts on upload ID, so a retry replaces the previous analysis
// in full.
func (s *Service) persist(uploadID string, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryAnalysis).
			Component("analysis").
			Context("operation", "encode_analysis").
			Context("upload_id", uploadID).
			Build()
	}

	record := &datastore.Analysis{
		UploadID:        uploadID,
		DurationSeconds: result.DurationSeconds,
		WordCount:       result.WordCount,
		WPM:             result.WPM,
		Payload:         payload,
	}
	if result.Performance != nil {
		grade := result.Performance.OverallGrade
		record.OverallGrade = &grade
	}

	return s.ds.SaveAnalysis(record)
}

func (s *Service) recordCacheHit() {
	if s.metrics != nil {
		s.metrics.Analysis.CacheHits.Inc()
	}
}

func (s *Service) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.Analysis.CacheMisses.Inc()
	}
}

func (s *Service) recordFailure() {
	if s.metrics != nil {
		s.metrics.Analysis.AnalysesFailed.Inc()
	}
}
