package resource

import (
	"context"
	"strconv"
	"strings"

	"github.com/broady/reskit/remote"
	"github.com/broady/reskit/shape"
)

// Remotes are the typed endpoints of a resource.
type Remotes[T any] struct {
	GetMany   *remote.QueryHandler[GetManyParams, GetManyResponse[T]]
	GetOne    *remote.QueryHandler[GetOneParams, DataResponse[T]]
	Create    *remote.ExecHandler[Partial, DataResponse[T]]
	Update    *remote.ExecHandler[UpdateParams, DataResponse[T]]
	DeleteOne *remote.ExecHandler[DeleteOneParams, DeleteOneResponse]
}

// Set erases the endpoint types.
func (rs Remotes[T]) Set() RemoteSet {
	return RemoteSet{
		GetMany:   rs.GetMany,
		GetOne:    rs.GetOne,
		Create:    rs.Create,
		Update:    rs.Update,
		DeleteOne: rs.DeleteOne,
	}
}

// RemoteSet holds the five endpoints of a resource without their types.
type RemoteSet struct {
	GetMany   remote.Endpoint
	GetOne    remote.Endpoint
	Create    remote.Endpoint
	Update    remote.Endpoint
	DeleteOne remote.Endpoint
}

// Endpoint returns the endpoint for an operation name, or nil.
func (s RemoteSet) Endpoint(op string) remote.Endpoint {
	switch op {
	case OpGetMany:
		return s.GetMany
	case OpGetOne:
		return s.GetOne
	case OpCreate:
		return s.Create
	case OpUpdate:
		return s.Update
	case OpDeleteOne:
		return s.DeleteOne
	}
	return nil
}

func (r *Resource[T]) buildRemotes() Remotes[T] {
	return Remotes[T]{
		GetMany: remote.Query(r.getMany),
		GetOne: remote.Query(func(ctx context.Context, p GetOneParams) (DataResponse[T], error) {
			return r.getOne(ctx, p.ID)
		}),
		Create: remote.Exec(r.create),
		Update: remote.Exec(r.update),
		DeleteOne: remote.Exec(func(ctx context.Context, p DeleteOneParams) (DeleteOneResponse, error) {
			return r.provider.DeleteOne(ctx, p.ID)
		}),
	}
}

func (r *Resource[T]) getMany(ctx context.Context, params GetManyParams) (GetManyResponse[T], error) {
	if err := r.checkFields(params); err != nil {
		return GetManyResponse[T]{}, err
	}
	res, err := r.provider.GetMany(ctx, params)
	if err != nil {
		return GetManyResponse[T]{}, err
	}
	if res.Data == nil {
		res.Data = []T{}
	}
	if r.hasProvider {
		if err := r.validateAll(res.Data); err != nil {
			return GetManyResponse[T]{}, err
		}
	}
	return res, nil
}

func (r *Resource[T]) getOne(ctx context.Context, id ID) (DataResponse[T], error) {
	res, err := r.provider.GetOne(ctx, id)
	if err != nil {
		return DataResponse[T]{}, err
	}
	return r.checkData(res)
}

func (r *Resource[T]) create(ctx context.Context, payload Partial) (DataResponse[T], error) {
	p, err := r.shape.ValidatePartial(payload)
	if err != nil {
		return DataResponse[T]{}, invalidInput(err)
	}
	res, err := r.provider.Create(ctx, p)
	if err != nil {
		return DataResponse[T]{}, err
	}
	return r.checkData(res)
}

func (r *Resource[T]) update(ctx context.Context, params UpdateParams) (DataResponse[T], error) {
	p, err := r.shape.ValidatePartial(params.Payload)
	if err != nil {
		return DataResponse[T]{}, invalidInput(err)
	}
	res, err := r.provider.Update(ctx, UpdateParams{ID: params.ID, Payload: p})
	if err != nil {
		return DataResponse[T]{}, err
	}
	return r.checkData(res)
}

func (r *Resource[T]) checkData(res DataResponse[T]) (DataResponse[T], error) {
	if r.hasProvider && res.Data != nil {
		if err := r.shape.Validate(res.Data); err != nil {
			return DataResponse[T]{}, err
		}
	}
	return res, nil
}

func (r *Resource[T]) validateAll(items []T) error {
	all := &shape.ValidationError{Shape: r.shape.Name()}
	for i := range items {
		err := r.shape.Validate(&items[i])
		if err == nil {
			continue
		}
		verr, ok := err.(*shape.ValidationError)
		if !ok {
			return err
		}
		for _, is := range verr.Issues {
			path := "[" + strconv.Itoa(i) + "]"
			if is.Path != "" {
				path += "." + is.Path
			}
			all.Issues = append(all.Issues, shape.Issue{Path: path, Message: is.Message})
		}
	}
	if len(all.Issues) > 0 {
		return all
	}
	return nil
}

// checkFields rejects sorters and filters naming fields the record does not
// have. Dotted paths are checked by their first segment.
func (r *Resource[T]) checkFields(params GetManyParams) error {
	known := func(path string) bool {
		head, _, _ := strings.Cut(path, ".")
		return r.shape.Field(head) != nil
	}
	for i, s := range params.Sorters {
		if !known(s.Field) {
			return remote.Errorf(remote.CodeInvalidArgument, "sorters[%d]: unknown field %q", i, s.Field)
		}
	}
	for i, f := range params.Filters {
		if !known(f.Field) {
			return remote.Errorf(remote.CodeInvalidArgument, "filters[%d]: unknown field %q", i, f.Field)
		}
	}
	return nil
}
