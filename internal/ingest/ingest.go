package ingest

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	History    pricehistorydomain.Service
	Candidates candidatedomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Ingester consumes observation and candidate topics. It is nil when no
// Kafka brokers are configured.
type Ingester struct {
	consumers []*Consumer
}

func New(p Params) (*Ingester, error) {
	log := p.Log.Named("ingest")
	kcfg := p.Cfg.Kafka
	if !kcfg.Enabled() {
		log.Info("kafka not configured, queue ingest disabled")
		return nil, nil
	}
	if kcfg.GroupID == "" {
		return nil, errors.New("kafka group id is required")
	}

	h := &handlers{
		log:        log,
		history:    p.History,
		candidates: p.Candidates,
		obsMetrics: p.ObsMetrics,
	}

	var consumers []*Consumer
	for topic, handler := range map[string]Handler{
		kcfg.ObservationTopic: h.observation,
		kcfg.CandidateTopic:   h.candidate,
	} {
		if topic == "" {
			continue
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kcfg.Brokers,
			GroupID:  kcfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  kcfg.MaxWait,
		})
		consumers = append(consumers, newConsumer(reader, topic, handler, log))
	}
	return &Ingester{consumers: consumers}, nil
}

func (i *Ingester) Start(ctx context.Context) error {
	if i == nil {
		return nil
	}
	for _, c := range i.consumers {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (i *Ingester) Stop() error {
	if i == nil {
		return nil
	}
	var errs []error
	for _, c := range i.consumers {
		if err := c.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
