package results

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/cellage/core/results"
)

// NewCheckupHandler returns an HTTP handler exposing stored check-ups via
// GET /api/checkups. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
//
// Supported filters: run_id, condition, age_type, and start/end as RFC 3339
// simulated timestamps.
func NewCheckupHandler(store results.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		v := r.URL.Query()
		q := results.Query{
			RunID:     v.Get("run_id"),
			Condition: v.Get("condition"),
			AgeType:   v.Get("age_type"),
		}
		for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := v.Get(key)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+key+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []results.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
