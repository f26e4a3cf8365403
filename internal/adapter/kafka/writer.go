package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/config"
	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Summary names used for the "summary" header and message key prefix.
const (
	SummaryByBorough                    = "by_borough"
	SummaryByYearBorough                = "by_year_borough"
	SummaryByYearBoroughCategory        = "by_year_borough_category"
	SummaryByCommunityBoard             = "by_community_board"
	SummaryByYearCommunityBoardCategory = "by_year_community_board_category"
)

// Writer publishes every summary row of a report to a Kafka topic, one
// message per row.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Load serializes the report's summaries and publishes them in a single
// WriteMessages call.
func (w *Writer) Load(ctx context.Context, report domain.Report) error {
	msgs, err := reportMessages(report)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish summaries: %w", err)
	}
	w.logger.Info("summaries published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// reportMessages flattens every summary table into keyed messages. Keys are
// the summary name followed by the group key so compacted topics keep the
// latest value per group.
func reportMessages(r domain.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0,
		len(r.ByBorough)+len(r.ByYearBorough)+len(r.ByYearBoroughCategory)+
			len(r.ByCommunityBoard)+len(r.ByYearCommunityBoardCategory))

	add := func(summary string, row any, key ...string) error {
		msg, err := serializeToMessage(summary, row, r.GeneratedAt, key...)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}

	for _, row := range r.ByBorough {
		if err := add(SummaryByBorough, row, row.BoroughName); err != nil {
			return nil, err
		}
	}
	for _, row := range r.ByYearBorough {
		if err := add(SummaryByYearBorough, row, row.Year, row.BoroughName); err != nil {
			return nil, err
		}
	}
	for _, row := range r.ByYearBoroughCategory {
		if err := add(SummaryByYearBoroughCategory, row, row.Year, row.BoroughName, row.Category); err != nil {
			return nil, err
		}
	}
	for _, row := range r.ByCommunityBoard {
		if err := add(SummaryByCommunityBoard, row, row.CommunityBoardName); err != nil {
			return nil, err
		}
	}
	for _, row := range r.ByYearCommunityBoardCategory {
		if err := add(SummaryByYearCommunityBoardCategory, row, row.Year, row.CommunityBoardName, row.Category); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// serializeToMessage marshals one summary row into a Kafka message.
func serializeToMessage(summary string, row any, generatedAt time.Time, key ...string) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row: %w", summary, err)
	}
	return kafkago.Message{
		Key:   []byte(summary + "|" + strings.Join(key, "|")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "summary", Value: []byte(summary)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
