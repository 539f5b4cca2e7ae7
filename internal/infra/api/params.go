package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"marketplace-payments/internal/domain"
)

// pathID binds a required path segment the same way generated handlers do.
func pathID(r *http.Request, name string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		return "", fmt.Errorf("%w: path parameter %s", domain.ErrInvalidArgument, name)
	}
	return id, nil
}

type page struct {
	Limit  int
	Offset int
}

// pageParams reads optional limit/offset query parameters.
func pageParams(r *http.Request, defLimit, maxLimit int) (page, error) {
	var limit, offset *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return page{}, fmt.Errorf("%w: limit", domain.ErrInvalidArgument)
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", q, &offset); err != nil {
		return page{}, fmt.Errorf("%w: offset", domain.ErrInvalidArgument)
	}
	p := page{Limit: defLimit}
	if limit != nil && *limit > 0 {
		p.Limit = *limit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if offset != nil && *offset > 0 {
		p.Offset = *offset
	}
	return p, nil
}

// optionalQuery binds an optional string query parameter.
func optionalQuery(r *http.Request, name string) (*string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, name)
	}
	if v != nil && *v == "" {
		return nil, nil
	}
	return v, nil
}
