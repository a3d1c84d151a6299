// Package mw provides HTTP middleware for the vincheck API.
package mw

import (
	"net/http"

	"github.com/jmylchreest/vincheck-api/internal/version"
)

// Build information headers.
const (
	APIVersionHeader = "X-API-Version"
	APICommitHeader  = "X-API-Commit"
)

// BuildInfo stamps every response with the server version and commit, so a
// report from the browser UI can be matched to a deployment.
func BuildInfo(info version.Info) func(http.Handler) http.Handler {
	ver, commit := info.Short(), info.Commit
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set(APIVersionHeader, ver)
			if commit != "" && commit != "unknown" {
				h.Set(APICommitHeader, commit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
