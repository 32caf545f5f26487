// Package middlewares contiene la cadena de middlewares HTTP: recover,
// request ID, security headers, CORS, logging, rate limiting y el guard
// de autenticación del portal admin.
package middlewares

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain aplica los middlewares en orden: el primero de la lista es el
// más externo.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
