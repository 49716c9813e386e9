package http

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Request bodies carry amounts and dates as strings. Malformed values are
// left as zero values so the entity validators can report them alongside
// every other field error in one 422 body.

type categoryPayload struct {
	UserID *int64  `json:"userId"`
	Name   *string `json:"name"`
	Type   *string `json:"type"`
}

type transactionPayload struct {
	UserID      *int64    `json:"userId"`
	CategoryID  *int64    `json:"categoryId"`
	Amount      *string   `json:"amount"`
	Type        *string   `json:"type"`
	Date        *string   `json:"date"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

func parseUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("userId"))
	if raw == "" {
		return 0, fmt.Errorf("missing userId parameter")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid userId parameter")
	}
	return id, nil
}

func parsePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// parseDateRange reads startDate/endDate query parameters. Absent or
// malformed values become zero Dates; the range validator reports them.
func parseDateRange(r *http.Request) (start, end core.Date) {
	if v := strings.TrimSpace(r.URL.Query().Get("startDate")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			start = d
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("endDate")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			end = d
		}
	}
	return start, end
}

// parseTransactionFilter builds the list filter from query parameters.
// Unknown or malformed optional values are rejected rather than ignored.
func parseTransactionFilter(r *http.Request) (storage.TransactionFilter, error) {
	userID, err := parseUserID(r)
	if err != nil {
		return storage.TransactionFilter{}, err
	}
	f := storage.TransactionFilter{UserID: userID}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return storage.TransactionFilter{}, fmt.Errorf("invalid startDate")
		}
		f.StartDate = d.String()
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return storage.TransactionFilter{}, fmt.Errorf("invalid endDate")
		}
		f.EndDate = d.String()
	}
	if v := strings.TrimSpace(q.Get("categoryId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return storage.TransactionFilter{}, fmt.Errorf("invalid categoryId")
		}
		f.CategoryID = &id
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		t := core.EntryType(v)
		if !t.IsValid() {
			return storage.TransactionFilter{}, fmt.Errorf("invalid type")
		}
		f.Type = t
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return storage.TransactionFilter{}, fmt.Errorf("invalid limit")
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return storage.TransactionFilter{}, fmt.Errorf("invalid offset")
		}
		f.Offset = n
	}
	return f, nil
}

// nullableID distinguishes an absent "categoryId" key (leave unchanged)
// from an explicit null (detach the category) in partial updates.
type nullableID struct {
	Set   bool
	Valid bool
	Int64 int64
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		return nil
	}
	id, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid categoryId")
	}
	n.Valid = true
	n.Int64 = id
	return nil
}

type transactionUpdatePayload struct {
	CategoryID  nullableID `json:"categoryId"`
	Amount      *string    `json:"amount"`
	Type        *string    `json:"type"`
	Date        *string    `json:"date"`
	Description *string    `json:"description"`
	Tags        *[]string  `json:"tags"`
}

// toUpdate maps the payload onto the storage-level partial update. Malformed
// amount/date strings map to zero values so the merged-shape validation in
// the service reports them at 422.
func (p transactionUpdatePayload) toUpdate() storage.TransactionUpdate {
	var upd storage.TransactionUpdate
	if p.CategoryID.Set {
		upd.CategoryID = &sql.NullInt64{Valid: p.CategoryID.Valid, Int64: p.CategoryID.Int64}
	}
	if p.Amount != nil {
		m, err := core.ParseMoney(*p.Amount)
		if err != nil {
			m = core.Money{}
		}
		upd.Amount = &m
	}
	if p.Type != nil {
		t := core.EntryType(*p.Type)
		upd.Type = &t
	}
	if p.Date != nil {
		d, err := core.ParseDate(*p.Date)
		if err != nil {
			d = core.Date{}
		}
		upd.Date = &d
	}
	upd.Description = p.Description
	upd.Tags = p.Tags
	return upd
}

// transactionFromPayload maps a create body to the domain entity, leaving
// malformed amount/date values zeroed for the validator.
func transactionFromPayload(p transactionPayload) core.Transaction {
	t := core.Transaction{CategoryID: p.CategoryID}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	if p.Amount != nil {
		if m, err := core.ParseMoney(*p.Amount); err == nil {
			t.Amount = m
		}
	}
	if p.Type != nil {
		t.Type = core.EntryType(*p.Type)
	}
	if p.Date != nil {
		if d, err := core.ParseDate(*p.Date); err == nil {
			t.Date = d
		}
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	return t
}
