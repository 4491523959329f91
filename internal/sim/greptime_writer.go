package sim

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes track and decision rows to GreptimeDB via the
// ingester client.
type GreptimeDBWriter struct {
	client        greptimeClient
	trackTable    string
	decisionTable string
}

// NewGreptimeDBWriter connects to GreptimeDB. endpoint is host or
// host:port; database is the target database name.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host := endpoint
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid greptime port %q: %w", p, err)
		}
		cfg = greptime.NewConfig(h).WithDatabase(database).WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:        client,
		trackTable:    TrackTableName,
		decisionTable: DecisionTableName,
	}, nil
}

// WriteTrack inserts a single track row.
func (w *GreptimeDBWriter) WriteTrack(row TrackRow) error {
	return w.WriteTracks([]TrackRow{row})
}

// WriteTracks inserts multiple track rows in one request.
func (w *GreptimeDBWriter) WriteTracks(rows []TrackRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.trackTable)
	if err != nil {
		return err
	}
	if err := addColumns(tbl,
		tag{"run_id"}, tag{"track_id"},
		field{"tick", types.INT64},
		field{"x", types.FLOAT64}, field{"y", types.FLOAT64},
		field{"vx", types.FLOAT64}, field{"vy", types.FLOAT64},
		field{"range_m", types.FLOAT64},
		field{"class", types.STRING}, field{"class_prob", types.FLOAT64},
		field{"age", types.INT64}, field{"degraded", types.BOOLEAN},
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.TrackID,
			int64(r.Tick), r.X, r.Y, r.VX, r.VY, r.RangeM,
			r.Class, r.ClassProb, int64(r.Age), r.Degraded,
			r.Timestamp); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteDecision inserts a single decision row.
func (w *GreptimeDBWriter) WriteDecision(d DecisionRow) error {
	return w.WriteDecisions([]DecisionRow{d})
}

// WriteDecisions inserts multiple decision rows in one request.
func (w *GreptimeDBWriter) WriteDecisions(rows []DecisionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.decisionTable)
	if err != nil {
		return err
	}
	if err := addColumns(tbl,
		tag{"run_id"}, tag{"track_id"},
		field{"action", types.STRING},
		field{"justification", types.STRING},
		field{"aggregate", types.BOOLEAN},
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.TrackID,
			r.Action, r.Justification, r.Aggregate,
			r.Timestamp); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

type tag struct{ name string }

type field struct {
	name string
	typ  types.ColumnType
}

// addColumns declares tags, fields, and the trailing timestamp column in
// the same order AddRow values are appended.
func addColumns(tbl *table.Table, cols ...any) error {
	for _, c := range cols {
		switch col := c.(type) {
		case tag:
			if err := tbl.AddTagColumn(col.name, types.STRING); err != nil {
				return err
			}
		case field:
			if err := tbl.AddFieldColumn(col.name, col.typ); err != nil {
				return err
			}
		}
	}
	return tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
}
