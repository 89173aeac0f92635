package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestQuery_Metadata(t *testing.T) {
	h := Query(func(ctx context.Context, req listRequest) ([]string, error) { return nil, nil })
	meta := h.Metadata()

	if meta.Primitive != "query" || meta.HTTPMethod != http.MethodGet {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Request != reflect.TypeOf(listRequest{}) {
		t.Errorf("expected request type listRequest, got %v", meta.Request)
	}
	if meta.Response != reflect.TypeOf([]string{}) {
		t.Errorf("expected response type []string, got %v", meta.Response)
	}
}

func TestExec_Metadata(t *testing.T) {
	h := Exec(func(ctx context.Context, req *createRequest) (*createResponse, error) { return nil, nil })
	meta := h.Metadata()

	if meta.Primitive != "exec" || meta.HTTPMethod != http.MethodPost {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Request != reflect.TypeOf(&createRequest{}) {
		t.Errorf("expected *createRequest, got %v", meta.Request)
	}
}

func TestCall_Validates(t *testing.T) {
	h := Exec(func(ctx context.Context, req createRequest) (createResponse, error) {
		return createResponse{Name: req.Name}, nil
	})

	_, err := h.Call(context.Background(), createRequest{Name: "x"})
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}

	res, err := h.Call(context.Background(), createRequest{Name: "Stew"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "Stew" {
		t.Errorf("expected Stew, got %q", res.Name)
	}
}

func TestCall_RunsEndpointInterceptors(t *testing.T) {
	var endpoint string
	h := Query(func(ctx context.Context, req struct{}) (string, error) {
		return "ok", nil
	}).WithUnaryInterceptor(func(ctx *Context, req any, next HandlerFunc) (any, error) {
		endpoint = ctx.EndpointID()
		return next(ctx, req)
	})

	ctx := NewContext(context.Background(), "recipes", "GetOne")
	res, err := h.Call(ctx, struct{}{})
	if err != nil || res != "ok" {
		t.Fatalf("unexpected result %q, %v", res, err)
	}
	if endpoint != "recipes.GetOne" {
		t.Errorf("expected recipes.GetOne, got %q", endpoint)
	}
}

func TestCall_InterceptorModifiesResponseType(t *testing.T) {
	h := Query(func(ctx context.Context, req struct{}) (string, error) {
		return "ok", nil
	}).WithUnaryInterceptor(func(ctx *Context, req any, next HandlerFunc) (any, error) {
		return 42, nil
	})

	_, err := h.Call(context.Background(), struct{}{})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != CodeInternal {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestDecodeQuery_PointerRequest(t *testing.T) {
	req, err := decodeQuery[*listRequest](url.Values{"search": {"soup"}, "limit": {"3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || req.Search != "soup" || req.Limit != 3 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestDecodeQuery_InputMixedWithOtherParams(t *testing.T) {
	// input is only honoured when it is the sole parameter
	req, err := decodeQuery[listRequest](url.Values{"input": {`{"search":"a"}`}, "search": {"b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Search != "b" {
		t.Errorf("expected flat decoding, got %+v", req)
	}
}

func TestDecodeQuery_BadInput(t *testing.T) {
	_, err := decodeQuery[listRequest](url.Values{"input": {`{"search":`}})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != CodeInvalidArgument {
		t.Errorf("expected invalid_argument, got %v", err)
	}
}
