package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/conduit-lang/dictquery/internal/web/response"
)

// Recovery turns a panic into a 500 response and logs it with its stack
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					requestID := GetRequestID(r.Context())
					logger.Error("panic recovered",
						zap.String("request_id", requestID),
						zap.String("panic", fmt.Sprint(v)),
						zap.ByteString("stack", debug.Stack()),
					)
					response.RenderError(w, http.StatusInternalServerError, response.ErrorResponse{
						Error:     "internal_server_error",
						Message:   "An unexpected error occurred",
						RequestID: requestID,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
