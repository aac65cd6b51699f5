package tracing

import (
	"context"

	"github.com/sarchlab/joskern/datarecording"
)

// Reader reads events back from a trace database.
type Reader struct {
	r datarecording.DataReader
}

// NewReader maps the trace tables in r.
func NewReader(r datarecording.DataReader) *Reader {
	r.MapTable(EventTable, Event{})
	r.MapTable(SessionTable, Session{})

	return &Reader{r: r}
}

// Sessions returns the recorded tracing sessions.
func (t *Reader) Sessions(ctx context.Context) ([]Session, error) {
	rows, _, err := t.r.Query(ctx, SessionTable,
		datarecording.QueryParams{OrderBy: "Started"})
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, *row.(*Session))
	}

	return sessions, nil
}

// Events returns the events that match kind, or all events when kind is
// empty, in recording order. A positive limit caps the number returned;
// total is the number of matching events.
func (t *Reader) Events(
	ctx context.Context,
	kind string,
	limit int,
) (events []Event, total int, err error) {
	params := datarecording.QueryParams{
		OrderBy: "Seq",
		Limit:   limit,
	}

	if kind != "" {
		params.Where = "Kind = ?"
		params.Args = []any{kind}
	}

	rows, total, err := t.r.Query(ctx, EventTable, params)
	if err != nil {
		return nil, 0, err
	}

	events = make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, *row.(*Event))
	}

	return events, total, nil
}
