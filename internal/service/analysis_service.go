package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gradewise/gradewise-api/internal/models"
	"github.com/gradewise/gradewise-api/pkg/config"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type analysisRecapProvider interface {
	Recap(ctx context.Context, period models.Period) ([]models.RecapEntry, error)
}

// AnalysisService forwards recap data to an external narrative-analysis
// endpoint and relays the generated summary. The prompt and model live on
// the remote side; this service only owns the data contract.
type AnalysisService struct {
	recaps analysisRecapProvider
	cfg    config.AnalysisConfig
	client *http.Client
	logger *zap.Logger
}

// NewAnalysisService constructs the analysis service.
func NewAnalysisService(recaps analysisRecapProvider, cfg config.AnalysisConfig, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnalysisService{
		recaps: recaps,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// AnalysisResult is the relayed narrative summary.
type AnalysisResult struct {
	StudentID   string        `json:"student_id"`
	Period      models.Period `json:"period"`
	Analysis    string        `json:"analysis"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type analysisRequest struct {
	Period  models.Period     `json:"period"`
	Student models.RecapEntry `json:"student"`
}

type analysisResponse struct {
	Analysis string `json:"analysis"`
}

// Analyze builds the student's recap entry for a period and asks the remote
// service for a narrative summary of it.
func (s *AnalysisService) Analyze(ctx context.Context, studentID string, period models.Period) (*AnalysisResult, error) {
	if !s.cfg.Enabled || s.cfg.Endpoint == "" {
		return nil, appErrors.Clone(appErrors.ErrAnalysisDisabled, "")
	}
	entries, err := s.recaps.Recap(ctx, period)
	if err != nil {
		return nil, err
	}
	var entry *models.RecapEntry
	for i := range entries {
		if entries[i].StudentID == studentID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	payload, err := json.Marshal(analysisRequest{Period: period, Student: *entry})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode analysis request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build analysis request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAnalysisUpstream.Code, appErrors.ErrAnalysisUpstream.Status, "analysis request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAnalysisUpstream.Code, appErrors.ErrAnalysisUpstream.Status, "failed to read analysis response")
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("analysis upstream returned error",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, appErrors.Clone(appErrors.ErrAnalysisUpstream, fmt.Sprintf("analysis service returned %d", resp.StatusCode))
	}

	var parsed analysisResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Analysis == "" {
		return nil, appErrors.Clone(appErrors.ErrAnalysisUpstream, "analysis service returned an unexpected payload")
	}
	return &AnalysisResult{StudentID: studentID, Period: period, Analysis: parsed.Analysis, GeneratedAt: time.Now().UTC()}, nil
}
