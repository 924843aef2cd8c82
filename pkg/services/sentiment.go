package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"tibyan/models"
)

const (
	defaultMaxInFlight = 3
	defaultBatchSize   = 5
	defaultBatchPause  = 200 * time.Millisecond
	defaultTimeout     = 10 * time.Second

	// fallbackConfidence marks heuristic results so callers can tell
	// them apart from model-derived confidences.
	fallbackConfidence = 0.6
)

const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// SentimentScores holds the per-label probabilities reported by the model.
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// SentimentResult is the normalized three-way classification.
type SentimentResult struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Scores     SentimentScores `json:"scores"`
	Source     string          `json:"source"`
}

// SentimentService wraps the remote classifier with a bounded worker
// pool. Submissions go through a FIFO queue drained by MaxInFlight
// workers, so the in-flight cap holds across all callers, batch or not.
type SentimentService struct {
	baseURL    string
	client     *http.Client
	timeout    time.Duration
	batchSize  int
	batchPause time.Duration

	queue chan classifyJob
	stop  sync.Once
}

type classifyJob struct {
	ctx  context.Context
	text string
	done chan SentimentResult
}

type SentimentOptions struct {
	BaseURL     string
	MaxInFlight int
	Timeout     time.Duration
	BatchSize   int
	BatchPause  time.Duration
	Client      *http.Client
}

func NewSentimentService(opts SentimentOptions) *SentimentService {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = defaultBatchPause
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	s := &SentimentService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		client:     opts.Client,
		timeout:    opts.Timeout,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		queue:      make(chan classifyJob, 256),
	}
	for i := 0; i < opts.MaxInFlight; i++ {
		go s.worker()
	}
	return s
}

// Close stops the worker pool. Queued jobs already submitted are drained.
func (s *SentimentService) Close() {
	s.stop.Do(func() { close(s.queue) })
}

// Classify never fails: one request is issued to the remote classifier
// and any timeout, transport error, non-2xx status or malformed payload
// resolves to the local lexical fallback. There are no retries.
func (s *SentimentService) Classify(ctx context.Context, text string) SentimentResult {
	job := classifyJob{ctx: ctx, text: text, done: make(chan SentimentResult, 1)}
	select {
	case s.queue <- job:
	case <-ctx.Done():
		return fallbackClassify(text)
	}
	select {
	case res := <-job.done:
		return res
	case <-ctx.Done():
		// The in-flight request is abandoned; the worker will discard
		// its result into the buffered channel.
		return fallbackClassify(text)
	}
}

// BatchClassify returns exactly one result per input, in input order.
// Texts are processed in chunks; items within a chunk run concurrently
// through the shared worker pool, and a short pause separates chunks to
// avoid saturating the remote service.
func (s *SentimentService) BatchClassify(ctx context.Context, texts []string) []SentimentResult {
	results := make([]SentimentResult, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.Classify(ctx, texts[i])
			}(i)
		}
		wg.Wait()
		if end < len(texts) {
			sleepWithContext(ctx, s.batchPause)
		}
	}
	return results
}

func (s *SentimentService) worker() {
	for job := range s.queue {
		res, err := s.callRemote(job.ctx, job.text)
		if err != nil {
			log.Printf("[classifier] remote classify failed, using fallback: %v", err)
			res = fallbackClassify(job.text)
		}
		job.done <- res
	}
}

// remoteResponse mirrors the classifier service payload. The numeric
// keys of all_probabilities map 0=negative, 1=neutral, 2=positive.
type remoteResponse struct {
	PredictedClass   string             `json:"predicted_class"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities"`
}

func (s *SentimentService) callRemote(ctx context.Context, text string) (SentimentResult, error) {
	bodyBytes, _ := json.Marshal(map[string]any{"text": text})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/classify", bytes.NewReader(bodyBytes))
	if err != nil {
		return SentimentResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return SentimentResult{}, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return SentimentResult{}, fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SentimentResult{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	var parsed remoteResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return SentimentResult{}, fmt.Errorf("bad payload: %w", err)
	}
	return normalizeRemote(parsed), nil
}

func normalizeRemote(r remoteResponse) SentimentResult {
	scores := SentimentScores{Positive: 0.33, Negative: 0.33, Neutral: 0.34}
	if r.AllProbabilities != nil {
		scores = SentimentScores{
			Negative: r.AllProbabilities["0"],
			Neutral:  r.AllProbabilities["1"],
			Positive: r.AllProbabilities["2"],
		}
	}

	label := r.PredictedClass
	switch label {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		// Positional encoding: pick the argmax of the fixed index->label
		// mapping. Ordering here breaks probability ties toward negative.
		label = models.SentimentNegative
		best := scores.Negative
		if scores.Neutral > best {
			label, best = models.SentimentNeutral, scores.Neutral
		}
		if scores.Positive > best {
			label = models.SentimentPositive
		}
	}

	conf := r.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return SentimentResult{Label: label, Confidence: conf, Scores: scores, Source: SourceModel}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
