package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/reskit/remote"
	"github.com/broady/reskit/resource"
	"github.com/broady/reskit/shape"
)

type berry struct {
	ID     int      `json:"id"`
	Name   string   `json:"name" validate:"required"`
	Size   float64  `json:"size,omitempty"`
	Flavor string   `json:"flavor,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type note struct {
	Key  string `json:"key"`
	Body string `json:"body"`
}

func seeded(t *testing.T) resource.Provider[berry] {
	t.Helper()
	return New[berry](WithRecords(
		berry{Name: "cheri", Size: 2, Flavor: "spicy", Tags: []string{"red"}},
		berry{Name: "chesto", Size: 8, Flavor: "dry"},
		berry{Name: "pecha", Size: 4, Flavor: "sweet", Tags: []string{"pink", "soft"}},
		berry{Name: "rawst", Size: 3, Flavor: "bitter"},
		berry{Name: "aspear", Size: 5, Flavor: "sour"},
	))(shape.Of[berry]())
}

func names(res resource.GetManyResponse[berry]) []string {
	out := make([]string, len(res.Data))
	for i, b := range res.Data {
		out[i] = b.Name
	}
	return out
}

func assertCode(t *testing.T, err error, code remote.ErrorCode) {
	t.Helper()
	var rerr *remote.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, code, rerr.Code)
}

func TestSeedAssignsSequentialIDs(t *testing.T) {
	p := seeded(t)
	res, err := p.GetMany(context.Background(), resource.GetManyParams{})
	require.NoError(t, err)
	require.Len(t, res.Data, 5)
	for i, b := range res.Data {
		assert.Equal(t, i+1, b.ID)
	}
	assert.Equal(t, 5, *res.Total)
	assert.Nil(t, res.PageCount)
}

func TestGetMany_Search(t *testing.T) {
	res, err := seeded(t).GetMany(context.Background(), resource.GetManyParams{Search: "CHE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cheri", "chesto"}, names(res))
}

func TestGetMany_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter resource.Filter
		want   []string
	}{
		{"eq", resource.Filter{Field: "flavor", Operator: resource.OpEq, Value: "dry"}, []string{"chesto"}},
		{"eq number", resource.Filter{Field: "size", Operator: resource.OpEq, Value: 4.0}, []string{"pecha"}},
		{"ne", resource.Filter{Field: "size", Operator: resource.OpNe, Value: 4}, []string{"cheri", "chesto", "rawst", "aspear"}},
		{"lt", resource.Filter{Field: "size", Operator: resource.OpLt, Value: 4}, []string{"cheri", "rawst"}},
		{"gt", resource.Filter{Field: "size", Operator: resource.OpGt, Value: 4}, []string{"chesto", "aspear"}},
		{"lte", resource.Filter{Field: "size", Operator: resource.OpLte, Value: "4"}, []string{"cheri", "pecha", "rawst"}},
		{"gte", resource.Filter{Field: "size", Operator: resource.OpGte, Value: 5}, []string{"chesto", "aspear"}},
		{"contains", resource.Filter{Field: "flavor", Operator: resource.OpContains, Value: "SW"}, []string{"pecha"}},
		{"contains array", resource.Filter{Field: "tags", Operator: resource.OpContains, Value: "soft"}, []string{"pecha"}},
		{"in", resource.Filter{Field: "id", Operator: resource.OpIn, Value: []any{1.0, 3.0}}, []string{"cheri", "pecha"}},
		{"in csv", resource.Filter{Field: "name", Operator: resource.OpIn, Value: "rawst, aspear"}, []string{"rawst", "aspear"}},
		{"nin", resource.Filter{Field: "name", Operator: resource.OpNin, Value: []string{"cheri", "chesto"}}, []string{"pecha", "rawst", "aspear"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := seeded(t).GetMany(context.Background(), resource.GetManyParams{Filters: []resource.Filter{tt.filter}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res))
			assert.Equal(t, len(tt.want), *res.Total)
		})
	}
}

func TestGetMany_FiltersCombine(t *testing.T) {
	res, err := seeded(t).GetMany(context.Background(), resource.GetManyParams{Filters: []resource.Filter{
		{Field: "size", Operator: resource.OpGte, Value: 3},
		{Field: "size", Operator: resource.OpLte, Value: 5},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pecha", "rawst", "aspear"}, names(res))
}

func TestGetMany_Sort(t *testing.T) {
	p := New[berry](WithRecords(
		berry{Name: "b", Size: 1},
		berry{Name: "a", Size: 2},
		berry{Name: "c", Size: 1},
		berry{Name: "d"},
	))(shape.Of[berry]())
	ctx := context.Background()

	res, err := p.GetMany(ctx, resource.GetManyParams{Sorters: []resource.Sorter{{Field: "name", Order: resource.Desc}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, names(res))

	res, err = p.GetMany(ctx, resource.GetManyParams{Sorters: []resource.Sorter{
		{Field: "size", Order: resource.Asc},
		{Field: "name", Order: resource.Desc},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, names(res), "missing sizes sort first")
}

func TestGetMany_Pagination(t *testing.T) {
	p := seeded(t)
	ctx := context.Background()

	res, err := p.GetMany(ctx, resource.GetManyParams{
		Pagination: &resource.Pagination{PageIndex: resource.Int(1), PageSize: resource.Int(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pecha", "rawst"}, names(res))
	assert.Equal(t, 5, *res.Total)
	assert.Equal(t, 3, *res.PageCount)

	res, err = p.GetMany(ctx, resource.GetManyParams{
		Pagination: &resource.Pagination{PageIndex: resource.Int(9), PageSize: resource.Int(2)},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	res, err = p.GetMany(ctx, resource.GetManyParams{
		Pagination: &resource.Pagination{PageIndex: resource.Int(1), PageSize: resource.Int(2), Mode: resource.PaginationClient},
	})
	require.NoError(t, err)
	assert.Len(t, res.Data, 5, "client mode returns everything")
}

func TestGetMany_InvalidPagination(t *testing.T) {
	p := seeded(t)
	ctx := context.Background()

	_, err := p.GetMany(ctx, resource.GetManyParams{
		Pagination: &resource.Pagination{PageIndex: resource.Int(-1), PageSize: resource.Int(2)},
	})
	assertCode(t, err, remote.CodeInvalidArgument)

	_, err = p.GetMany(ctx, resource.GetManyParams{
		Pagination: &resource.Pagination{PageIndex: resource.Int(0), PageSize: resource.Int(0)},
	})
	assertCode(t, err, remote.CodeInvalidArgument)
}

func TestCreateUpdateDelete(t *testing.T) {
	p := seeded(t)
	ctx := context.Background()

	created, err := p.Create(ctx, resource.Partial{"name": "oran", "size": 6})
	require.NoError(t, err)
	assert.Equal(t, 6, created.Data.ID)

	updated, err := p.Update(ctx, resource.UpdateParams{ID: "6", Payload: resource.Partial{"flavor": "mild", "id": 99}})
	require.NoError(t, err)
	assert.Equal(t, berry{ID: 6, Name: "oran", Size: 6, Flavor: "mild"}, *updated.Data)

	got, err := p.GetOne(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, "mild", got.Data.Flavor)

	_, err = p.DeleteOne(ctx, "6")
	require.NoError(t, err)
	_, err = p.GetOne(ctx, "6")
	assertCode(t, err, remote.CodeNotFound)

	created, err = p.Create(ctx, resource.Partial{"name": "sitrus"})
	require.NoError(t, err)
	assert.Equal(t, 7, created.Data.ID, "ids are not reused after delete")
}

func TestErrors(t *testing.T) {
	p := seeded(t)
	ctx := context.Background()

	_, err := p.Create(ctx, resource.Partial{"size": 1})
	assertCode(t, err, remote.CodeInvalidArgument)

	_, err = p.Create(ctx, resource.Partial{"id": 2, "name": "dupe"})
	assertCode(t, err, remote.CodeConflict)

	_, err = p.Update(ctx, resource.UpdateParams{ID: "1", Payload: resource.Partial{"name": ""}})
	assertCode(t, err, remote.CodeInvalidArgument)

	_, err = p.Update(ctx, resource.UpdateParams{ID: "404", Payload: resource.Partial{"name": "x"}})
	assertCode(t, err, remote.CodeNotFound)

	_, err = p.DeleteOne(ctx, "404")
	assertCode(t, err, remote.CodeNotFound)
}

func TestStringIDs(t *testing.T) {
	st := New[note](WithIDField("key"), WithRecords(note{Key: "fixed", Body: "a"}, note{Body: "b"}))(shape.Of[note]())
	ctx := context.Background()

	got, err := st.GetOne(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Data.Body)

	res, err := st.GetMany(ctx, resource.GetManyParams{})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Len(t, res.Data[1].Key, 36, "generated keys are UUIDs")
	assert.Equal(t, 2, st.(*Store[note]).Len())
}

func TestNew_UnknownIDField(t *testing.T) {
	assert.PanicsWithValue(t, `memory: note has no field "id"`, func() {
		New[note]()(shape.Of[note]())
	})
}
