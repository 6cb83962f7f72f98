package common

import (
	"log"
	"net/http"

	"github.com/bytedance/sonic"
)

// JsonHandler wraps a handler that produces a JSON payload. OPTIONS requests
// are answered directly; other errors are logged, not surfaced to the client
// beyond the status the handler already wrote.
func JsonHandler(fn func(w http.ResponseWriter, r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		data, err := fn(w, r)
		if err != nil {
			log.Printf("error handling request %s: %v", r.URL.Path, err)
			return
		}
		if data == nil {
			return
		}
		if err := sonic.ConfigDefault.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response for %s: %v", r.URL.Path, err)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
