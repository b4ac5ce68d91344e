package middleware

import (
	"net/http"

	"golang.org/x/text/language"

	"staffhub/internal/requestctx"
)

// Locale negotiates the response language from the "lang" query parameter or
// Accept-Language. The first supported tag is the fallback.
func Locale(supported []language.Tag) func(http.Handler) http.Handler {
	matcher := language.NewMatcher(supported)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, idx := language.MatchStrings(matcher, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
			locale := supported[idx].String()
			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(requestctx.WithLocale(r.Context(), locale)))
		})
	}
}
