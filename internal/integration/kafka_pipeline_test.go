//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/nyc-forestry-etl/internal/config"
	"github.com/couchcryptid/nyc-forestry-etl/internal/domain"
	"github.com/couchcryptid/nyc-forestry-etl/internal/observability"
	"github.com/couchcryptid/nyc-forestry-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSummaryTopic = "test-summaries"

const requestsCSV = `SRCategory,SRPriority,SRStatus,CommunityBoard,ZIPCode,InitiatedDate,ClosedDate
Hazard,A,Closed,101,10004,03/04/2019 09:15:00,04/01/2019 10:00:00
Prune,C,Closed,205,10457,12/31/2020 23:59:59,01/02/2021 08:00:00
Hazard,B,Closed,101,10004,05/05/2020 08:00:00,05/20/2020 08:00:00
Planting,B,Closed,480,11430,07/01/2020 08:00:00,07/15/2020 08:00:00
Hazard,B,In Progress,101,10004,06/01/2021 00:00:00,
Claims,D,Closed,301,11201,02/02/2020 08:00:00,03/03/2020 08:00:00
Prune,C,Closed,X1,10001,02/02/2020 08:00:00,03/03/2020 08:00:00
`

const canopyCSV = `CommunityDistrict,CanopyCover
MN01,0.2
`

// summaryMessage holds a deserialized message read from the summary topic.
type summaryMessage struct {
	Summary     string
	Key         string
	GeneratedAt string
	Value       []byte
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("forestry-report-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func writeInputs(t *testing.T) (requestsPath, canopyPath string) {
	t.Helper()
	dir := t.TempDir()
	requestsPath = filepath.Join(dir, "requests.csv")
	canopyPath = filepath.Join(dir, "canopy.csv")
	require.NoError(t, os.WriteFile(requestsPath, []byte(requestsCSV), 0o600))
	require.NoError(t, os.WriteFile(canopyPath, []byte(canopyCSV), 0o600))
	return requestsPath, canopyPath
}

// readSummary reads a single message from the summary consumer.
func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) summaryMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return summaryMessage{
		Summary:     headers["summary"],
		Key:         string(msg.Key),
		GeneratedAt: headers["generated_at"],
		Value:       msg.Value,
	}
}

// TestReportEndToEnd runs the full pipeline (CSV source → transformer → Kafka
// writer) against a real broker and reads every summary row back.
func TestReportEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	requestsPath, canopyPath := writeInputs(t)
	cfg := &config.Config{
		RequestsPath:      requestsPath,
		CanopyPath:        canopyPath,
		DateLayout:        "01/02/2006 15:04:05",
		CanopyKeyColumn:   "CommunityDistrict",
		CanopyValueColumn: "CanopyCover",
		KafkaBrokers:      []string{broker},
		KafkaEnabled:      true,
		KafkaSummaryTopic: testSummaryTopic,
	}
	require.NoError(t, cfg.Validate())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(
		csvsource.NewSource(cfg, discardLogger()),
		pipeline.NewTransformer(discardLogger()),
		discardLogger(),
		observability.NewMetrics(),
	)
	p.AddLoader("kafka", writer)

	report, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Clean.Read)
	assert.Equal(t, 4, report.Clean.Retained)
	assert.Equal(t, 2, report.CanopyMisses, "BX05 and QN80 have no canopy record")

	expected := len(report.ByBorough) + len(report.ByYearBorough) + len(report.ByYearBoroughCategory) +
		len(report.ByCommunityBoard) + len(report.ByYearCommunityBoardCategory)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-summaries-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]summaryMessage, 0, expected)
	for len(received) < expected {
		received = append(received, readSummary(ctx, t, consumer))
	}

	counts := map[string]int{}
	boards := map[string]domain.CommunityBoardSummary{}
	for _, m := range received {
		counts[m.Summary]++
		_, err := time.Parse(time.RFC3339, m.GeneratedAt)
		assert.NoError(t, err, "generated_at should be RFC3339")

		if m.Summary == kafka.SummaryByCommunityBoard {
			var row domain.CommunityBoardSummary
			require.NoError(t, json.Unmarshal(m.Value, &row))
			assert.Equal(t, kafka.SummaryByCommunityBoard+"|"+row.CommunityBoardName, m.Key)
			boards[row.CommunityBoardName] = row
		}
	}

	assert.Equal(t, len(report.ByBorough), counts[kafka.SummaryByBorough])
	assert.Equal(t, len(report.ByYearBorough), counts[kafka.SummaryByYearBorough])
	assert.Equal(t, len(report.ByCommunityBoard), counts[kafka.SummaryByCommunityBoard])

	require.Contains(t, boards, "MN01")
	assert.Equal(t, 2, boards["MN01"].TotalCalls)
	require.NotNil(t, boards["MN01"].MeanCanopyCover)
	assert.InDelta(t, 0.2, *boards["MN01"].MeanCanopyCover, 1e-9)

	require.Contains(t, boards, "BX05")
	assert.Equal(t, 1, boards["BX05"].TotalCalls)
	assert.Nil(t, boards["BX05"].MeanCanopyCover)
	assert.NotContains(t, boards, "QN80", "joint interest areas stay out of the board summary")
}
