package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"go.uber.org/zap"
)

const (
	kindObservation = "observation"
	kindCandidate   = "candidate"

	resultOK      = "ok"
	resultInvalid = "invalid"
	resultFailed  = "failed"
)

var observationValidationErrors = []error{
	pricehistorydomain.ErrInvalidProduct,
	pricehistorydomain.ErrInvalidStore,
	pricehistorydomain.ErrInvalidPrice,
	pricehistorydomain.ErrInvalidCurrency,
	pricehistorydomain.ErrInvalidSource,
}

var candidateValidationErrors = []error{
	candidatedomain.ErrInvalidSource,
	candidatedomain.ErrInvalidExternalID,
	candidatedomain.ErrInvalidName,
	candidatedomain.ErrInvalidPrice,
	candidatedomain.ErrInvalidCurrency,
}

type handlers struct {
	log        *zap.Logger
	history    pricehistorydomain.Service
	candidates candidatedomain.Service
	obsMetrics *obsmetrics.Metrics
}

func (h *handlers) observation(ctx context.Context, msg kafka.Message) error {
	var req pricehistorydomain.AppendRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.obsMetrics.RecordIngestMessage(ctx, kindObservation, resultInvalid)
		return Permanent(fmt.Errorf("decode observation: %w", err))
	}

	res, err := h.history.Append(ctx, req)
	if err != nil {
		if isAny(err, observationValidationErrors) {
			h.obsMetrics.RecordIngestMessage(ctx, kindObservation, resultInvalid)
			return Permanent(err)
		}
		h.obsMetrics.RecordIngestMessage(ctx, kindObservation, resultFailed)
		return err
	}

	h.obsMetrics.RecordIngestMessage(ctx, kindObservation, resultOK)
	h.log.Debug("observation ingested",
		zap.Int64("observation_id", res.Observation.ID),
		zap.String("outcome", string(res.Outcome)),
	)
	return nil
}

func (h *handlers) candidate(ctx context.Context, msg kafka.Message) error {
	var req candidatedomain.SubmitRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.obsMetrics.RecordIngestMessage(ctx, kindCandidate, resultInvalid)
		return Permanent(fmt.Errorf("decode candidate: %w", err))
	}

	rec, err := h.candidates.Submit(ctx, req)
	if err != nil {
		if isAny(err, candidateValidationErrors) {
			h.obsMetrics.RecordIngestMessage(ctx, kindCandidate, resultInvalid)
			return Permanent(err)
		}
		h.obsMetrics.RecordIngestMessage(ctx, kindCandidate, resultFailed)
		return err
	}

	h.obsMetrics.RecordIngestMessage(ctx, kindCandidate, resultOK)
	h.log.Debug("candidate staged", zap.Int64("candidate_id", rec.ID))
	return nil
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
