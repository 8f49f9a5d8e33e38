// Package jobdata defines the core types shared by the fetch-and-persist pipeline.
package jobdata

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// TableName is the store table every sink writes to.
const TableName = "job_data"

// Target is a fully-formed request URL for one identifier.
type Target struct {
	// ID is the trimmed identifier the URL was built from. It is kept for log correlation only.
	ID  string
	URL string
}

// Record is the JSON body returned by the remote endpoint for one target.
// Pointer fields distinguish "absent" or null from "zero" so missing fields can be rejected.
// Empty strings are values, not absences.
type Record struct {
	// PKID accepts any integral JSON number, including forms like 3.0 or 3e2.
	PKID        *json.Number `json:"pk_id"`
	JobID       *string      `json:"job_id"`
	AppName     *string      `json:"app_name"`
	State       *string      `json:"state"`
	DateCreated *string      `json:"date_created"`
}

// Row is the persisted form of a Record.
type Row struct {
	PKID        int64  `db:"pk_id"`
	JobID       string `db:"job_id"`
	AppName     string `db:"app_name"`
	State       string `db:"state"`
	DateCreated string `db:"date_created"`
}

// ToRow converts a decoded record, failing with ErrMissingField when a required field is absent.
func (r Record) ToRow() (Row, error) {
	switch {
	case r.PKID == nil:
		return Row{}, missing("pk_id")
	case r.JobID == nil:
		return Row{}, missing("job_id")
	case r.AppName == nil:
		return Row{}, missing("app_name")
	case r.State == nil:
		return Row{}, missing("state")
	case r.DateCreated == nil:
		return Row{}, missing("date_created")
	}
	pk, err := parseKey(*r.PKID)
	if err != nil {
		return Row{}, err
	}
	return Row{
		PKID:        pk,
		JobID:       *r.JobID,
		AppName:     *r.AppName,
		State:       *r.State,
		DateCreated: *r.DateCreated,
	}, nil
}

func parseKey(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: pk_id %s is not an integer", ErrInvalidField, n.String())
	}
	return int64(f), nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// Outcome describes the result of attempting one target.
type Outcome struct {
	WorkerID int
	Target   Target
	// Row is set when the record was persisted.
	Row      *Row
	Duration time.Duration
	// Err is a *Failure when the attempt failed, nil otherwise.
	Err error
}

// Succeeded reports whether the target was fetched and persisted.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}
