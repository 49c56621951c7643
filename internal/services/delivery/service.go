package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"leadgate/internal/common/errors"
	commonhttp "leadgate/internal/common/http"
	"leadgate/internal/common/logger"
	"leadgate/internal/common/observability"
)

var ErrDeliveryFailed = errors.New("DELIVERY_FAILED")

type ServiceDependencies struct {
	Logger        logger.Logger
	HTTPClient    *commonhttp.Client
	Observability *observability.Observability
}

// Service posts unlocked results to the delivery endpoint.
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
		logger: log.With(map[string]interface{}{"service": "delivery"}),
		client: client,
		obs:    deps.Observability,
	}
}

// Deliver sends the report. Failures wrap ErrDeliveryFailed.
func (s *Service) Deliver(ctx context.Context, req *Request) (receipt *Receipt, err error) {
	ctx, span := s.obs.StartSpan(ctx, "delivery.deliver",
		attribute.String("session.id", req.SessionID),
		attribute.Int("candidates.count", len(req.Candidates)),
	)
	start := time.Now()
	defer func() {
		s.obs.RecordRemoteCall(ctx, "deliver", time.Since(start), err)
		observability.EndSpan(span, err)
	}()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	var payload interface{} = BuildPayload(req)
	if s.config.Mode == ModeSubscribe {
		payload = SubscribePayload{Email: req.Email}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewDeliveryFailedError(fmt.Errorf("%w: marshal payload: %v", ErrDeliveryFailed, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewDeliveryFailedError(fmt.Errorf("%w: %v", ErrDeliveryFailed, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, errors.NewDeliveryFailedError(fmt.Errorf("%w: %v", ErrDeliveryFailed, err))
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	receipt = &Receipt{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	if readErr != nil {
		s.logger.WithError(readErr).Warn("failed to read delivery response", map[string]interface{}{
			"requestId":  commonhttp.RequestID(httpReq),
			"sessionId":  req.SessionID,
			"statusCode": resp.StatusCode,
			"partial":    receipt.Body,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return receipt, errors.NewDeliveryFailedError(
			fmt.Errorf("%w: delivery service returned %d", ErrDeliveryFailed, resp.StatusCode))
	}

	s.logger.Info("report delivered", map[string]interface{}{
		"requestId":  commonhttp.RequestID(httpReq),
		"sessionId":  req.SessionID,
		"statusCode": resp.StatusCode,
		"response":   receipt.Body,
	})

	return receipt, nil
}
