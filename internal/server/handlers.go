package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"biorag/internal/domain"
)

type questionRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string                 `json:"answer"`
	Tools  []domain.RetrievedTool `json:"tools"`
}

type searchResponse struct {
	Tools []domain.RetrievedTool `json:"tools"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	st, err := s.pipeline.Run(r.Context(), req.Question)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{Answer: st.Answer, Tools: nonNil(st.Retrieved)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("question", req.Question))
	st, err := s.pipeline.Retrieve(r.Context(), req.Question)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Tools: nonNil(st.Retrieved)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exists, err := s.store.CollectionExists(ctx)
	if err != nil {
		s.logger.Error("status: collection check failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := map[string]any{"collection_exists": exists, "points": 0}
	if exists {
		n, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Error("status: count failed", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		resp["points"] = n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	var stageErr *domain.StageError
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stageErr):
		s.logger.Error("query failed", zap.String("stage", stageErr.Stage), zap.Error(stageErr.Err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func nonNil(tools []domain.RetrievedTool) []domain.RetrievedTool {
	if tools == nil {
		return []domain.RetrievedTool{}
	}
	return tools
}
