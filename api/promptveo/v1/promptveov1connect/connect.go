// Package promptveov1connect wires promptveo.v1 service implementations into
// Connect HTTP handlers.
package promptveov1connect

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/promptveo-api/pkg/rpcjson"
)

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{rpcjson.WithJSON()}, opts...)
}

// route serves one Connect service path by dispatching on the full procedure.
func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
