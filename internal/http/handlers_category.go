package http

import (
	"net/http"
	"sync/atomic"

	"ledger/internal/core"
	"ledger/internal/storage"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var p categoryPayload
	if err := decodeJSON(r, &p); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	c := core.Category{}
	if p.UserID != nil {
		c.UserID = *p.UserID
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = core.EntryType(*p.Type)
	}

	created, err := s.categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.categoriesWritten, 1)
	s.invalidateUser(created.UserID)
	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var typeFilter core.EntryType
	if v := r.URL.Query().Get("type"); v != "" {
		typeFilter = core.EntryType(v)
		if !typeFilter.IsValid() {
			writeBadRequest(w, "invalid type")
			return
		}
	}

	cats, err := s.categories.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		if typeFilter != "" && c.Type != typeFilter {
			continue
		}
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	c, err := s.categories.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var p categoryPayload
	if err := decodeJSON(r, &p); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	upd := storage.CategoryUpdate{Name: p.Name}
	if p.Type != nil {
		t := core.EntryType(*p.Type)
		upd.Type = &t
	}

	updated, err := s.categories.Update(r.Context(), userID, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.categoriesWritten, 1)
	// A rename changes the labels on cached spending reports.
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, toCategoryResponse(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.categories.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.categoriesWritten, 1)
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
