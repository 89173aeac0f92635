// Package memory implements a resource provider that keeps records in
// process memory. It supports search, every filter operator, multi-key
// sorting and server-side pagination, and is used by tests and demos.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/broady/reskit/remote"
	"github.com/broady/reskit/resource"
	"github.com/broady/reskit/shape"
)

// Option configures the store.
type Option func(*config)

type config struct {
	idKey string
	seed  []any
}

// WithIDField sets the JSON key holding record ids. Default "id".
func WithIDField(key string) Option {
	return func(c *config) { c.idKey = key }
}

// WithRecords seeds the store. Records without an id get a generated one.
func WithRecords[T any](records ...T) Option {
	return func(c *config) {
		for _, r := range records {
			c.seed = append(c.seed, r)
		}
	}
}

// New returns a provider factory for an empty (or seeded) store. It panics
// if the id field is not part of the shape or a seed record is invalid.
func New[T any](opts ...Option) resource.ProviderFactory[T] {
	cfg := &config{idKey: "id"}
	for _, opt := range opts {
		opt(cfg)
	}
	return func(s *shape.Shape) resource.Provider[T] {
		st, err := newStore[T](s, cfg)
		if err != nil {
			panic(fmt.Sprintf("memory: %v", err))
		}
		return st
	}
}

// Store holds records of type T as JSON documents in insertion order.
type Store[T any] struct {
	shape *shape.Shape
	idKey string

	mu    sync.RWMutex
	order []resource.ID
	rows  map[resource.ID][]byte
	seq   int
}

func newStore[T any](s *shape.Shape, cfg *config) (*Store[T], error) {
	if s.Field(cfg.idKey) == nil {
		return nil, fmt.Errorf("%s has no field %q", s.Name(), cfg.idKey)
	}
	st := &Store[T]{
		shape: s,
		idKey: cfg.idKey,
		rows:  make(map[resource.ID][]byte),
	}
	for i, rec := range cfg.seed {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		if _, _, err := st.insert(obj); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
	}
	return st, nil
}

// Len returns the number of stored records.
func (st *Store[T]) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.order)
}

func (st *Store[T]) GetMany(ctx context.Context, params resource.GetManyParams) (resource.GetManyResponse[T], error) {
	if pg := params.Pagination; pg.Paged() {
		if *pg.PageSize <= 0 {
			return resource.GetManyResponse[T]{}, remote.Errorf(remote.CodeInvalidArgument, "pageSize must be positive, got %d", *pg.PageSize)
		}
		if pg.PageIndex != nil && *pg.PageIndex < 0 {
			return resource.GetManyResponse[T]{}, remote.Errorf(remote.CodeInvalidArgument, "pageIndex must not be negative, got %d", *pg.PageIndex)
		}
	}

	st.mu.RLock()
	rows := make([][]byte, 0, len(st.order))
	for _, id := range st.order {
		rows = append(rows, st.rows[id])
	}
	st.mu.RUnlock()

	rows = slices.DeleteFunc(rows, func(row []byte) bool {
		return !st.matchSearch(row, params.Search) || !matchFilters(row, params.Filters)
	})
	if len(params.Sorters) > 0 {
		slices.SortStableFunc(rows, func(a, b []byte) int { return compareRows(a, b, params.Sorters) })
	}

	total := len(rows)
	out := resource.GetManyResponse[T]{Total: &total}
	if pg := params.Pagination; pg.Paged() {
		size := *pg.PageSize
		index := 0
		if pg.PageIndex != nil {
			index = *pg.PageIndex
		}
		start := min(index*size, total)
		end := min(start+size, total)
		rows = rows[start:end]
		pc := resource.PageCount(total, size)
		out.PageCount = &pc
	}

	out.Data = make([]T, len(rows))
	for i, row := range rows {
		if err := json.Unmarshal(row, &out.Data[i]); err != nil {
			return resource.GetManyResponse[T]{}, err
		}
	}
	return out, nil
}

func (st *Store[T]) GetOne(ctx context.Context, id resource.ID) (resource.DataResponse[T], error) {
	st.mu.RLock()
	row, ok := st.rows[id]
	st.mu.RUnlock()
	if !ok {
		return resource.DataResponse[T]{}, notFound(id)
	}
	return decode[T](row)
}

func (st *Store[T]) Create(ctx context.Context, payload resource.Partial) (resource.DataResponse[T], error) {
	obj, err := toObject(payload)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	st.mu.Lock()
	_, row, err := st.insert(obj)
	st.mu.Unlock()
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	return decode[T](row)
}

func (st *Store[T]) Update(ctx context.Context, params resource.UpdateParams) (resource.DataResponse[T], error) {
	patch, err := toObject(params.Payload)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	row, ok := st.rows[params.ID]
	if !ok {
		return resource.DataResponse[T]{}, notFound(params.ID)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(row, &obj); err != nil {
		return resource.DataResponse[T]{}, err
	}
	for k, v := range patch {
		if k != st.idKey {
			obj[k] = v
		}
	}
	merged, err := st.validate(obj)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	st.rows[params.ID] = merged
	return decode[T](merged)
}

func (st *Store[T]) DeleteOne(ctx context.Context, id resource.ID) (resource.DeleteOneResponse, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.rows[id]; !ok {
		return resource.DeleteOneResponse{}, notFound(id)
	}
	delete(st.rows, id)
	st.order = slices.DeleteFunc(st.order, func(x resource.ID) bool { return x == id })
	return resource.DeleteOneResponse{}, nil
}

// insert assigns an id when missing and stores obj. Callers hold mu.
func (st *Store[T]) insert(obj map[string]json.RawMessage) (resource.ID, []byte, error) {
	var id resource.ID
	if raw, ok := obj[st.idKey]; ok && !zeroID(raw) {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", nil, remote.Errorf(remote.CodeInvalidArgument, "%s: %v", st.idKey, err)
		}
	} else {
		id = st.newID()
		if st.shape.Field(st.idKey).Kind == shape.KindInt {
			obj[st.idKey] = json.RawMessage(id)
		} else {
			obj[st.idKey], _ = json.Marshal(string(id))
		}
	}
	if _, exists := st.rows[id]; exists {
		return "", nil, remote.Errorf(remote.CodeConflict, "%s %q already exists", st.shape.Name(), id)
	}
	row, err := st.validate(obj)
	if err != nil {
		return "", nil, err
	}
	st.rows[id] = row
	st.order = append(st.order, id)
	return id, row, nil
}

// newID returns the next free sequence number for integer ids, else a UUID.
func (st *Store[T]) newID() resource.ID {
	if st.shape.Field(st.idKey).Kind != shape.KindInt {
		return resource.ID(uuid.NewString())
	}
	for {
		st.seq++
		id := resource.ID(strconv.Itoa(st.seq))
		if _, taken := st.rows[id]; !taken {
			return id
		}
	}
}

// validate checks a full record against the shape and returns its canonical JSON.
func (st *Store[T]) validate(obj map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	v, err := shape.Parse[T](st.shape, data)
	if err != nil {
		return nil, remote.Errorf(remote.CodeInvalidArgument, "%v", err)
	}
	return json.Marshal(v)
}

func (st *Store[T]) matchSearch(row []byte, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, f := range st.shape.Fields() {
		if f.Kind != shape.KindString {
			continue
		}
		if strings.Contains(strings.ToLower(gjson.GetBytes(row, f.Key).String()), q) {
			return true
		}
	}
	return false
}

func zeroID(raw json.RawMessage) bool {
	switch string(raw) {
	case "null", `""`, "0":
		return true
	}
	return false
}

func toObject(p resource.Partial) (map[string]json.RawMessage, error) {
	obj := make(map[string]json.RawMessage, len(p))
	for k, v := range p {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = raw
	}
	return obj, nil
}

func decode[T any](row []byte) (resource.DataResponse[T], error) {
	var v T
	if err := json.Unmarshal(row, &v); err != nil {
		return resource.DataResponse[T]{}, err
	}
	return resource.DataResponse[T]{Data: &v}, nil
}

func notFound(id resource.ID) error {
	return remote.Errorf(remote.CodeNotFound, "record %q not found", id)
}
