package resource

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/broady/reskit/shape"
)

// ID identifies a record. On the wire it may be a JSON string or number.
type ID string

// UnmarshalJSON accepts "7" and 7 alike.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// PaginationMode says where paging happens.
type PaginationMode string

const (
	PaginationClient PaginationMode = "client"
	PaginationServer PaginationMode = "server"
	PaginationOff    PaginationMode = "off"
)

// Pagination requests one page. PageIndex is zero-based.
type Pagination struct {
	PageIndex *int           `json:"pageIndex,omitempty" validate:"omitempty,gte=0"`
	PageSize  *int           `json:"pageSize,omitempty" validate:"omitempty,gt=0"`
	Mode      PaginationMode `json:"mode,omitempty" validate:"omitempty,oneof=client server off"`
}

// Paged reports whether the provider should page the results itself.
func (p *Pagination) Paged() bool {
	return p != nil && p.Mode != PaginationClient && p.Mode != PaginationOff && p.PageSize != nil
}

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

type Sorter struct {
	Field string    `json:"field" validate:"required"`
	Order SortOrder `json:"order" validate:"oneof=asc desc"`
}

// Operator is a filter comparison.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpGt       Operator = "gt"
	OpLte      Operator = "lte"
	OpGte      Operator = "gte"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpNin      Operator = "nin"
)

// Operators lists every supported filter operator.
var Operators = []Operator{OpEq, OpNe, OpLt, OpGt, OpLte, OpGte, OpContains, OpIn, OpNin}

type Filter struct {
	Field    string   `json:"field" validate:"required"`
	Operator Operator `json:"operator" validate:"oneof=eq ne lt gt lte gte contains in nin"`
	Value    any      `json:"value"`
}

// GetManyParams selects a page of records.
type GetManyParams struct {
	Pagination *Pagination    `json:"pagination,omitempty"`
	Search     string         `json:"search,omitempty"`
	Sorters    []Sorter       `json:"sorters,omitempty" validate:"omitempty,dive"`
	Filters    []Filter       `json:"filters,omitempty" validate:"omitempty,dive"`
	Meta       map[string]any `json:"meta,omitempty"`
}

type GetManyResponse[T any] struct {
	Data      []T  `json:"data"`
	Total     *int `json:"total,omitempty"`
	PageCount *int `json:"pageCount,omitempty"`
}

// DataResponse carries a single record, or null.
type DataResponse[T any] struct {
	Data *T `json:"data"`
}

type DeleteOneResponse struct {
	Data any `json:"data,omitempty"`
}

type GetOneParams struct {
	ID ID `json:"id" validate:"required"`
}

type DeleteOneParams struct {
	ID ID `json:"id" validate:"required"`
}

// Partial holds a subset of a record's fields keyed by JSON name.
type Partial = shape.Partial

type UpdateParams struct {
	ID      ID      `json:"id" validate:"required"`
	Payload Partial `json:"payload"`
}

// Column is an ordered column of list and export views.
type Column struct {
	Key    string `json:"key"` // dotted path into the record
	Header string `json:"header"`
}

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// PageCount computes the number of pages for total records of size pageSize.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
