package resource

import (
	"context"
	"log/slog"

	"github.com/broady/reskit/shape"
)

// Provider performs CRUD operations against a data source.
// Implementations must be safe for concurrent use.
type Provider[T any] interface {
	GetMany(ctx context.Context, params GetManyParams) (GetManyResponse[T], error)
	GetOne(ctx context.Context, id ID) (DataResponse[T], error)
	Create(ctx context.Context, payload Partial) (DataResponse[T], error)
	Update(ctx context.Context, params UpdateParams) (DataResponse[T], error)
	DeleteOne(ctx context.Context, id ID) (DeleteOneResponse, error)
}

// ProviderFactory builds a provider for a record shape. It runs once, when
// the resource is defined.
type ProviderFactory[T any] func(s *shape.Shape) Provider[T]

// noProvider serves resources defined without a provider. Every call logs a
// warning and returns an empty result instead of failing.
type noProvider[T any] struct {
	name   string
	logger *slog.Logger
}

func (p *noProvider[T]) warn(ctx context.Context, op string) {
	p.logger.WarnContext(ctx, "no provider defined for resource",
		slog.String("resource", p.name),
		slog.String("operation", op))
}

func (p *noProvider[T]) GetMany(ctx context.Context, params GetManyParams) (GetManyResponse[T], error) {
	p.warn(ctx, OpGetMany)
	return GetManyResponse[T]{Data: []T{}, Total: Int(0)}, nil
}

func (p *noProvider[T]) GetOne(ctx context.Context, id ID) (DataResponse[T], error) {
	p.warn(ctx, OpGetOne)
	return DataResponse[T]{}, nil
}

func (p *noProvider[T]) Create(ctx context.Context, payload Partial) (DataResponse[T], error) {
	p.warn(ctx, OpCreate)
	return DataResponse[T]{}, nil
}

func (p *noProvider[T]) Update(ctx context.Context, params UpdateParams) (DataResponse[T], error) {
	p.warn(ctx, OpUpdate)
	return DataResponse[T]{}, nil
}

func (p *noProvider[T]) DeleteOne(ctx context.Context, id ID) (DeleteOneResponse, error) {
	p.warn(ctx, OpDeleteOne)
	return DeleteOneResponse{}, nil
}
