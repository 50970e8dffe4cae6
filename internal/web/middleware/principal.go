package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/conduit-lang/dictquery/internal/access"
)

// Principal headers are set by the authenticating gateway in front of the server
const (
	PrincipalIDHeader         = "X-Principal-ID"
	PrincipalRolesHeader      = "X-Principal-Roles"
	PrincipalAttributesHeader = "X-Principal-Attributes"

	principalKey ContextKey = "principal"
)

// Principal reads the caller identity from gateway headers. Roles are comma
// separated; attributes are URL-query encoded, e.g. "AD_Client_ID=11&AD_Org_ID=0".
func Principal() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := access.Principal{ID: strings.TrimSpace(r.Header.Get(PrincipalIDHeader))}

			for _, role := range strings.Split(r.Header.Get(PrincipalRolesHeader), ",") {
				if role = strings.TrimSpace(role); role != "" {
					p.Roles = append(p.Roles, role)
				}
			}

			if raw := r.Header.Get(PrincipalAttributesHeader); raw != "" {
				values, err := url.ParseQuery(raw)
				if err != nil {
					http.Error(w, "malformed "+PrincipalAttributesHeader+" header", http.StatusBadRequest)
					return
				}
				p.Attributes = make(map[string]interface{}, len(values))
				for k, v := range values {
					p.Attributes[k] = v[0]
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		})
	}
}

// GetPrincipal returns the principal stored by the Principal middleware
func GetPrincipal(ctx context.Context) access.Principal {
	p, _ := ctx.Value(principalKey).(access.Principal)
	return p
}
