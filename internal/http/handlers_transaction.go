package http

import (
	"net/http"
	"sync/atomic"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var p transactionPayload
	if err := decodeJSON(r, &p); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	created, err := s.transactions.Create(r.Context(), transactionFromPayload(p))
	if err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.transactionsWritten, 1)
	s.invalidateUser(created.UserID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	items, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
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

	t, err := s.transactions.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
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

	var p transactionUpdatePayload
	if err := decodeJSON(r, &p); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	updated, err := s.transactions.Update(r.Context(), userID, id, p.toUpdate())
	if err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.transactionsWritten, 1)
	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
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

	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	atomic.AddInt64(&s.metrics.transactionsWritten, 1)
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
