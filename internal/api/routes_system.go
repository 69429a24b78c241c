package api

import "net/http"

func (s *Server) registerSystemRoutes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/api/v1/system/version", s.handleSystemVersion)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	respondOK(w, map[string]any{"status": "ok"})
}

func (s *Server) handleSystemVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	info := map[string]any{
		"version": s.deps.Version,
	}
	if s.deps.LLM != nil {
		info["model"] = s.deps.LLM.Model()
	}
	respondOK(w, info)
}
