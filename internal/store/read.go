package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Order selects how ReadArrivals sorts rows.
type Order int

const (
	// ByArrival returns rows in delivery order.
	ByArrival Order = iota
	// BySeq returns rows grouped by entity in sequence order, arrival
	// breaking ties between duplicates.
	BySeq
)

const selectArrivals = `
	SELECT arrival, event_id, entity_id, seq, kind, payload, event_time, outcome, request_id, recorded_at
	FROM arrivals
`

// ReadArrivals returns journal rows, optionally restricted to one entity.
// An empty entityID reads every entity.
//
// Returns an empty slice (not nil) if no rows match.
func (s *Store) ReadArrivals(ctx context.Context, entityID string, order Order) ([]Arrival, error) {
	query := selectArrivals
	var args []any
	if entityID != "" {
		query += " WHERE entity_id = ?"
		args = append(args, entityID)
	}
	switch order {
	case BySeq:
		query += " ORDER BY entity_id COLLATE BINARY ASC, seq ASC, arrival ASC"
	default:
		query += " ORDER BY arrival ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query arrivals: %w", err)
	}
	defer rows.Close()

	arrivals := []Arrival{}
	for rows.Next() {
		a, err := scanArrival(rows)
		if err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arrivals: %w", err)
	}

	return arrivals, nil
}

// ReadArrival retrieves a single row by arrival number.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadArrival(ctx context.Context, arrival int64) (Arrival, error) {
	row := s.db.QueryRowContext(ctx, selectArrivals+" WHERE arrival = ?", arrival)
	return scanArrival(row)
}

// ListEntities returns the distinct entity ids in the journal, sorted.
func (s *Store) ListEntities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT entity_id FROM arrivals
		ORDER BY entity_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return ids, nil
}

// CountArrivals returns the number of rows, optionally for one entity.
func (s *Store) CountArrivals(ctx context.Context, entityID string) (int64, error) {
	var n int64
	var err error
	if entityID == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM arrivals").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM arrivals WHERE entity_id = ?", entityID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count arrivals: %w", err)
	}
	return n, nil
}

// MaxArrival returns the highest arrival number recorded, or 0 for an
// empty journal. The server continues numbering from here.
func (s *Store) MaxArrival(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(arrival) FROM arrivals").Scan(&n); err != nil {
		return 0, fmt.Errorf("max arrival: %w", err)
	}
	return n.Int64, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArrival(row rowScanner) (Arrival, error) {
	var a Arrival
	var payloadJSON, eventTime, recordedAt string
	if err := row.Scan(
		&a.Arrival,
		&a.EventID,
		&a.EntityID,
		&a.Seq,
		&a.Kind,
		&payloadJSON,
		&eventTime,
		&a.Outcome,
		&a.RequestID,
		&recordedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Arrival{}, err
		}
		return Arrival{}, fmt.Errorf("scan arrival: %w", err)
	}

	var err error
	if a.Payload, err = unmarshalPayload(payloadJSON); err != nil {
		return Arrival{}, err
	}
	if a.EventTime, err = parseTime(eventTime); err != nil {
		return Arrival{}, err
	}
	if a.RecordedAt, err = parseTime(recordedAt); err != nil {
		return Arrival{}, err
	}
	return a, nil
}
