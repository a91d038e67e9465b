package timeseries

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/swxsoc/swxingest/internal/log"
)

// InfluxWriter is the subset of api.WriteAPIBlocking used here.
type InfluxWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes each point to measurement <series name> tagged with the instrument.
type InfluxSink struct {
	writer InfluxWriter
	logger *slog.Logger
}

// NewInfluxSink wraps a blocking write API.
func NewInfluxSink(w InfluxWriter) *InfluxSink {
	return &InfluxSink{writer: w, logger: log.WithComponent("influxdb")}
}

// Record writes all points of s in one call.
func (i *InfluxSink) Record(ctx context.Context, s Series) error {
	points := make([]*write.Point, 0, len(s.Points))
	for _, p := range s.Points {
		fields := make(map[string]interface{}, len(p.Values))
		for k, v := range p.Values {
			if Finite(v) {
				fields[k] = v
			}
		}
		if len(fields) == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint(
			s.Name,
			map[string]string{"instrument": s.Instrument},
			fields,
			p.Time,
		))
	}
	if len(points) == 0 {
		return nil
	}

	if err := i.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influxdb write %s (%s): %w", s.Name, s.Instrument, err)
	}
	i.logger.Info("recorded series", "series", s.Name, "instrument", s.Instrument, "points", len(points))
	return nil
}
