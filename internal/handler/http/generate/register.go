package generate

import "net/http"

// Register registers the public generation routes with the given mux.
//
// Routes are registered without a method so that a wrong method gets the
// same JSON error body as every other failure.
func Register(mux *http.ServeMux, deps Deps) {
	mux.Handle("/api/generate/ad", AdHandler{deps})
	mux.Handle("/api/generate/email", EmailHandler{deps})
	mux.Handle("/api/generate/quota", QuotaHandler{deps})
}
