package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/importer"
	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/storage"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.norm.Threshold()
	}
	s.logger.Debug("match request", zap.Int("words", len(req.Words)), zap.Float64("threshold", threshold))
	s.respondJSON(w, http.StatusOK, &models.MatchResponse{
		Results:   s.norm.MatchAll(req.Words, threshold),
		Threshold: threshold,
	})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req models.NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("normalize request", zap.Int("length", len(req.Text)))
	s.respondJSON(w, http.StatusOK, s.norm.NormalizeText(req.Text, req.Threshold))
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req models.TokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tokens := s.norm.Tokens(req.Text)
	if tokens == nil {
		tokens = []string{}
	}
	s.respondJSON(w, http.StatusOK, &models.TokenizeResult{
		Tokens:   tokens,
		Sequence: tokenizer.Join(tokens),
	})
}

func (s *Server) handleKeywordsList(w http.ResponseWriter, r *http.Request) {
	// The first keyword is always the empty one.
	keywords := s.norm.Keywords()[1:]
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

func (s *Server) handleKeywordsAdd(w http.ResponseWriter, r *http.Request) {
	var req models.KeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Keywords) == 0 {
		s.respondError(w, http.StatusBadRequest, "keywords cannot be empty")
		return
	}
	added := s.norm.AddKeywords(req.Keywords)
	if s.storage != nil {
		if _, err := s.storage.AddKeywords(r.Context(), req.Keywords); err != nil {
			s.logger.Error("persist keywords failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleWordsAdd(w http.ResponseWriter, r *http.Request) {
	var req models.WordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Words) == 0 {
		s.respondError(w, http.StatusBadRequest, "words cannot be empty")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"added": s.norm.AddWords(req.Words)})
}

func (s *Server) handleLexiconGet(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	if unescaped, err := url.PathUnescape(word); err == nil {
		word = unescaped
	}
	entry, ok := s.norm.Lookup(word)
	if !ok {
		s.respondError(w, http.StatusNotFound, "word not found")
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handlePostingCreate(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := importer.Restructure([]map[string]any{raw})[0]
	p.TitleSeg = tokenizer.Join(s.norm.Tokens(p.Title))
	p.DescSeg = tokenizer.Join(s.norm.Tokens(p.Desc))
	s.logger.Debug("create posting request", zap.String("id", p.ID), zap.String("title", p.Title))
	if err := s.storage.CreatePosting(r.Context(), p); err != nil {
		s.logger.Error("store posting failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": p.ID, "status": "stored"})
}

func (s *Server) handlePostingGet(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	p, err := s.storage.GetPosting(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "posting not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

const (
	defaultPostingLimit = 50
	maxPostingLimit     = 500
)

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func (s *Server) handlePostingList(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultPostingLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > maxPostingLimit {
		limit = maxPostingLimit
	}
	postings, err := s.storage.ListPostings(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if postings == nil {
		postings = []*models.Posting{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"postings": postings,
		"offset":   offset,
		"limit":    limit,
	})
}

func (s *Server) handlePostingDelete(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	id := chi.URLParam(r, "id")
	err := s.storage.DeletePosting(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "posting not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not configured")
		return
	}
	if err := s.norm.Save(r.Context(), s.storage); err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := s.norm.Stats()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "saved",
		"words":    stats.Words,
		"keywords": stats.Keywords,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.norm.Stats()
	resp := map[string]interface{}{
		"words":    stats.Words,
		"keywords": stats.Keywords,
	}

	if s.storage != nil {
		ctx := r.Context()
		postings, err := s.storage.CountPostings(ctx)
		if err != nil {
			s.logger.Error("status: count postings failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		stored, err := s.storage.CountWords(ctx)
		if err != nil {
			s.logger.Error("status: count words failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["postings"] = postings
		resp["stored_words"] = stored
	}

	configInfo := map[string]interface{}{
		"cosine_cutoff":  s.config.Lexicon.CosineCutoff,
		"edit_intensity": s.norm.Threshold(),
		"database_path":  s.config.Storage.DatabasePath,
		"keyword_files":  s.config.Lexicon.KeywordFiles,
		"watch_enabled":  s.config.Watch.EnabledOrDefault(),
	}
	if s.files != nil {
		configInfo["watched_files"] = s.files.Files()
	}
	if s.storage != nil {
		diskBytes, err := storage.DiskUsageBytes(storage.DatabaseFiles(s.config.Storage.DatabasePath)...)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
