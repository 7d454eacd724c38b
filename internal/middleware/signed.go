package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/params"
	"github.com/julik/signed-params/internal/signature"
)

// NotFoundBody is what a client sees for any request that failed
// verification. Missing and wrong signatures look the same.
const NotFoundBody = "No such page"

type contextKey string

const signedParamsKey contextKey = "signed_params"

func contextWithRoute(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, logging.RouteKey, name)
}

// SignedParams returns the verified parameters stored by RequireSignedParams.
func SignedParams(ctx context.Context) (params.Map, bool) {
	m, ok := ctx.Value(signedParamsKey).(params.Map)
	return m, ok
}

type guardOptions struct {
	only   []string
	except []string
}

// GuardOption narrows the routes a guard applies to, by mux route name.
type GuardOption func(*guardOptions)

// Only guards the named routes and lets every other route through.
func Only(names ...string) GuardOption {
	return func(o *guardOptions) { o.only = append(o.only, names...) }
}

// Except guards every route but the named ones.
func Except(names ...string) GuardOption {
	return func(o *guardOptions) { o.except = append(o.except, names...) }
}

func (o *guardOptions) applies(r *http.Request) bool {
	name := ""
	if route := mux.CurrentRoute(r); route != nil {
		name = route.GetName()
	}
	if len(o.only) > 0 && !lo.Contains(o.only, name) {
		return false
	}
	return !lo.Contains(o.except, name)
}

// RequireSignedParams rejects requests whose parameters do not carry a valid
// signature. Tampered requests get a plain 404 so that a client cannot tell a
// protected page from a missing one. A configuration error is a server
// fault and answers 500.
func RequireSignedParams(verifier *signature.Verifier, logger logging.Logger, opts ...GuardOption) mux.MiddlewareFunc {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Field{Key: "component", Value: "signed_params"})

	options := &guardOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !options.applies(r) {
				next.ServeHTTP(w, r)
				return
			}

			log := logger.WithContext(r.Context())

			m, err := params.FromRequest(r)
			if err != nil {
				log.Error("Request parameters possibly tampered!", err, logging.Field{Key: "path", Value: r.URL.Path})
				notFound(w)
				return
			}

			if err := verifier.Verify(m); err != nil {
				if signature.IsTampered(err) {
					log.Error("Request parameters possibly tampered!", err,
						logging.Field{Key: "reason", Value: string(signature.TamperReasonOf(err))},
						logging.Field{Key: "path", Value: r.URL.Path},
					)
					notFound(w)
					return
				}
				log.Error("Signed parameters cannot be verified", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), signedParamsKey, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(NotFoundBody))
}
