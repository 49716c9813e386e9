package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	start, end := parseDateRange(r)

	key := s.reportCacheKey(userID, start, end)
	if cached, ok := s.summaryCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		slog.DebugContext(r.Context(), "Summary cache hit", "user_id", userID)
		writeJSON(w, http.StatusOK, toSummaryResponse(cached))
		return
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	summary, err := s.transactions.Summary(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	start, end := parseDateRange(r)

	key := s.reportCacheKey(userID, start, end)
	if cached, ok := s.spendingCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		slog.DebugContext(r.Context(), "Spending cache hit", "user_id", userID)
		writeJSON(w, http.StatusOK, toSpendingResponse(cached))
		return
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	rows, err := s.transactions.SpendingByCategory(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.spendingCache.Set(key, rows)
	writeJSON(w, http.StatusOK, toSpendingResponse(rows))
}
