package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"leadgate/internal/common/errors"
	commonhttp "leadgate/internal/common/http"
	"leadgate/internal/common/logger"
	"leadgate/internal/common/observability"
)

var (
	ErrAnalysisFailed  = errors.New("ANALYSIS_FAILED")
	ErrAnalysisTimeout = errors.New("ANALYSIS_TIMEOUT")
)

const (
	fieldObjective = "idea"
	fieldFiles     = "files"
	fileMediaType  = "text/csv"
)

type ServiceDependencies struct {
	Logger        logger.Logger
	HTTPClient    *commonhttp.Client
	Observability *observability.Observability
}

// Service calls the remote analysis endpoint.
type Service struct {
	config *Config
	logger logger.Logger
	client *commonhttp.Client
	obs    *observability.Observability
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	client := deps.HTTPClient
	if client == nil {
		client = commonhttp.NewClient(config.Timeout)
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		config: config,
		logger: log.With(map[string]interface{}{"service": "analysis"}),
		client: client,
		obs:    deps.Observability,
	}
}

// Analyze uploads the objective and files and returns the normalized result.
// Every failure is a *errors.StandardError wrapping ErrAnalysisFailed or
// ErrAnalysisTimeout.
func (s *Service) Analyze(ctx context.Context, req *Request) (result *Result, err error) {
	ctx, span := s.obs.StartSpan(ctx, "analysis.analyze",
		attribute.String("scan.id", req.ScanID),
		attribute.Int("files.count", len(req.Files)),
	)
	start := time.Now()
	defer func() {
		s.obs.RecordRemoteCall(ctx, "analyze", time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, errors.NewAnalysisRequestFailedError(fmt.Errorf("%w: encode form: %v", ErrAnalysisFailed, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, body)
	if err != nil {
		return nil, errors.NewAnalysisRequestFailedError(fmt.Errorf("%w: %v", ErrAnalysisFailed, err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	s.logger.Info("submitting analysis", map[string]interface{}{
		"scanId":    req.ScanID,
		"fileCount": len(req.Files),
		"url":       s.config.URL,
	})

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewAnalysisTimeoutError(fmt.Errorf("%w: %v", ErrAnalysisTimeout, err))
		}
		return nil, errors.NewAnalysisRequestFailedError(fmt.Errorf("%w: %v", ErrAnalysisFailed, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.NewAnalysisTimeoutError(fmt.Errorf("%w: read body: %v", ErrAnalysisTimeout, err))
		}
		return nil, errors.NewAnalysisRequestFailedError(fmt.Errorf("%w: read body: %v", ErrAnalysisFailed, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewAnalysisRequestFailedError(
			fmt.Errorf("%w: analysis service returned %d: %s", ErrAnalysisFailed, resp.StatusCode, snippet(raw)))
	}

	result, err = parseResponse(raw)
	if err != nil {
		return nil, errors.NewAnalysisBadResponseError(fmt.Errorf("%w: %v", ErrAnalysisFailed, err))
	}

	s.logger.Info("analysis completed", map[string]interface{}{
		"scanId":         req.ScanID,
		"requestId":      commonhttp.RequestID(httpReq),
		"sessionId":      result.SessionID,
		"candidateCount": len(result.Candidates),
	})

	return result, nil
}

func encodeForm(req *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(fieldObjective, req.Objective); err != nil {
		return nil, "", err
	}

	for _, f := range req.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldFiles, quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", fileMediaType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
