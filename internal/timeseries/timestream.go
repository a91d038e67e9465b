package timeseries

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"

	"github.com/swxsoc/swxingest/internal/log"
)

// timestreamBatchSize is the WriteRecords per-call record limit.
const timestreamBatchSize = 100

// TimestreamAPI is the subset of the Timestream write client used here.
type TimestreamAPI interface {
	WriteRecords(ctx context.Context, params *timestreamwrite.WriteRecordsInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error)
}

// TimestreamSink writes each point as one multi-measure record dimensioned
// by instrument.
type TimestreamSink struct {
	client   TimestreamAPI
	database string
	table    string
	logger   *slog.Logger
}

// NewTimestreamSink creates a sink. An empty table means "use the series name".
func NewTimestreamSink(client TimestreamAPI, database, table string) *TimestreamSink {
	return &TimestreamSink{
		client:   client,
		database: database,
		table:    table,
		logger:   log.WithComponent("timestream"),
	}
}

// Record writes s in batches of at most 100 records.
func (t *TimestreamSink) Record(ctx context.Context, s Series) error {
	table := t.table
	if table == "" {
		table = s.Name
	}

	records := buildRecords(s)
	for start := 0; start < len(records); start += timestreamBatchSize {
		end := min(start+timestreamBatchSize, len(records))
		_, err := t.client.WriteRecords(ctx, &timestreamwrite.WriteRecordsInput{
			DatabaseName: aws.String(t.database),
			TableName:    aws.String(table),
			CommonAttributes: &types.Record{
				Dimensions: []types.Dimension{
					{Name: aws.String("instrument"), Value: aws.String(s.Instrument)},
				},
				MeasureName:      aws.String(s.Name),
				MeasureValueType: types.MeasureValueTypeMulti,
				TimeUnit:         types.TimeUnitMilliseconds,
			},
			Records: records[start:end],
		})
		if err != nil {
			return fmt.Errorf("timestream write %s.%s (%s): %w", t.database, table, s.Instrument, err)
		}
	}

	t.logger.Info("recorded series", "series", s.Name, "instrument", s.Instrument, "records", len(records), "table", table)
	return nil
}

func buildRecords(s Series) []types.Record {
	records := make([]types.Record, 0, len(s.Points))
	for _, p := range s.Points {
		var measures []types.MeasureValue
		for _, col := range sortedKeys(p.Values) {
			v := p.Values[col]
			if !Finite(v) {
				continue
			}
			measures = append(measures, types.MeasureValue{
				Name:  aws.String(col),
				Type:  types.MeasureValueTypeDouble,
				Value: aws.String(strconv.FormatFloat(v, 'g', -1, 64)),
			})
		}
		if len(measures) == 0 {
			continue
		}
		records = append(records, types.Record{
			Time:          aws.String(strconv.FormatInt(p.Time.UnixMilli(), 10)),
			MeasureValues: measures,
		})
	}
	return records
}
