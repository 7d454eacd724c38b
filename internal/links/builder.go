// Package links builds URLs for named gorilla/mux routes with the request
// parameters signed, so that the receiving handler can be guarded by
// middleware.RequireSignedParams.
package links

import (
	"fmt"

	"github.com/gorilla/mux"

	"github.com/julik/signed-params/internal/common/errors"
	"github.com/julik/signed-params/internal/params"
	"github.com/julik/signed-params/internal/signature"
)

type Builder struct {
	router       *mux.Router
	signer       *signature.Signer
	bracketLists bool
}

type Option func(*Builder)

// WithBracketLists writes list parameters as key[]=v. Legacy deployments
// need it, because the legacy payload tells lists and scalars apart.
func WithBracketLists() Option {
	return func(b *Builder) { b.bracketLists = true }
}

func NewBuilder(router *mux.Router, signer *signature.Signer, opts ...Option) *Builder {
	b := &Builder{router: router, signer: signer}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SignedURL returns the URL of the named route. Parameters named like route
// variables fill the path; the rest go to the query string. The signature
// covers both, computed over the values exactly as the receiving request
// will parse them. m is not modified.
func (b *Builder) SignedURL(name string, m params.Map) (string, error) {
	route := b.router.Get(name)
	if route == nil {
		return "", errors.NotFoundError(fmt.Sprintf("route %q", name))
	}

	varNames, err := route.GetVarNames()
	if err != nil {
		return "", errors.InternalError(fmt.Sprintf("route %q has no path template", name), err)
	}

	pairs := make([]string, 0, 2*len(varNames))
	pathValues := make(map[string]string, len(varNames))
	for _, v := range varNames {
		text, ok := params.Text(m[v])
		if !ok {
			return "", errors.ValidationError(fmt.Sprintf("route %q needs a scalar value for %q", name, v))
		}
		pairs = append(pairs, v, text)
		pathValues[v] = text
	}

	omit := append([]string{"controller", "action", signature.SignatureKey}, varNames...)
	query := m.Without(omit...).Values(b.bracketLists)

	wire := params.FromValues(query)
	for k, text := range pathValues {
		wire[k] = params.String(text)
	}

	sig, err := b.signer.Sign(wire)
	if err != nil {
		return "", err
	}

	u, err := route.URL(pairs...)
	if err != nil {
		return "", errors.ValidationError(fmt.Sprintf("cannot build URL for route %q: %v", name, err))
	}

	query.Set(signature.SignatureKey, sig)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
