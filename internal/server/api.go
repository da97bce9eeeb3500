package server

import "net/http"

type StatusResponse struct {
	Agent  string `json:"agent"`
	Status string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadyResponse struct {
	Ready bool `json:"ready"`
}

func (r *Runtime) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", getOnly(r.handleStatus))
	mux.HandleFunc("/health", getOnly(r.handleHealth))
	mux.HandleFunc("/ready", getOnly(r.handleReady))
	mux.HandleFunc("/", r.handleNotFound)
}

func getOnly(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
			return
		}
		handler(w, req)
	}
}

func (r *Runtime) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Agent: r.opts.Agent, Status: "ready"})
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ReadyResponse{Ready: true})
}

func (r *Runtime) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeAPIError(w, http.StatusNotFound, "not_found", "route not found")
}
