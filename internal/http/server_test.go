package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/services"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	repo   *storage.Repository
	server *Server
	ts     *httptest.Server
	alice  int64
	bob    int64
}

func (s *ServerTestSuite) SetupTest() {
	repo, err := storage.NewRepository(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err)
	s.repo = repo

	alice, err := repo.CreateUser(context.Background(), "alice@example.com", "hash")
	require.NoError(s.T(), err)
	s.alice = alice.ID
	bob, err := repo.CreateUser(context.Background(), "bob@example.com", "hash")
	require.NoError(s.T(), err)
	s.bob = bob.ID

	categories := services.NewCategoryService(repo)
	transactions := services.NewTransactionService(repo, nil)
	s.server = NewServer(":0", repo, categories, transactions, 10000)
	s.ts = httptest.NewServer(s.server.Handler)
}

func (s *ServerTestSuite) TearDownTest() {
	s.ts.Close()
	require.NoError(s.T(), s.server.Shutdown(context.Background()))
	require.NoError(s.T(), s.repo.Close())
}

func (s *ServerTestSuite) request(method, path string, body any) (*http.Response, []byte) {
	s.T().Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(s.T(), err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.ts.Client().Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp, raw
}

func (s *ServerTestSuite) createCategory(userID int64, name, typ string) map[string]any {
	s.T().Helper()
	resp, raw := s.request(http.MethodPost, "/api/categories", map[string]any{
		"userId": userID, "name": name, "type": typ,
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, string(raw))
	var out map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &out))
	return out
}

func (s *ServerTestSuite) createTransaction(userID int64, body map[string]any) map[string]any {
	s.T().Helper()
	body["userId"] = userID
	resp, raw := s.request(http.MethodPost, "/api/transactions", body)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, string(raw))
	var out map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &out))
	return out
}

func (s *ServerTestSuite) TestCategoryCRUD() {
	created := s.createCategory(s.alice, "Food", "expense")
	id := int64(created["id"].(float64))
	assert.Equal(s.T(), "Food", created["name"])
	assert.Equal(s.T(), "expense", created["type"])

	resp, raw := s.request(http.MethodGet, fmt.Sprintf("/api/categories/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &got))
	assert.Equal(s.T(), "Food", got["name"])

	resp, raw = s.request(http.MethodPut, fmt.Sprintf("/api/categories/%d?userId=%d", id, s.alice),
		map[string]any{"name": "Groceries"})
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(s.T(), json.Unmarshal(raw, &got))
	assert.Equal(s.T(), "Groceries", got["name"])
	assert.Equal(s.T(), "expense", got["type"], "type untouched by partial update")

	resp, _ = s.request(http.MethodDelete, fmt.Sprintf("/api/categories/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusNoContent, resp.StatusCode)

	resp, _ = s.request(http.MethodGet, fmt.Sprintf("/api/categories/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestCategoryValidationErrors() {
	resp, raw := s.request(http.MethodPost, "/api/categories", map[string]any{
		"userId": s.alice, "name": "", "type": "loan",
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	assert.Len(s.T(), body.Errors, 2, "all field errors aggregated: %v", body.Errors)
}

func (s *ServerTestSuite) TestCategoryListFilterAndEmpty() {
	resp, raw := s.request(http.MethodGet, fmt.Sprintf("/api/categories?userId=%d", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), "[]", strings.TrimSpace(string(raw)), "empty list is [], not null")

	s.createCategory(s.alice, "Food", "expense")
	s.createCategory(s.alice, "Salary", "income")

	resp, raw = s.request(http.MethodGet, fmt.Sprintf("/api/categories?userId=%d&type=income", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &list))
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), "Salary", list[0]["name"])
}

func (s *ServerTestSuite) TestTransactionCRUD() {
	cat := s.createCategory(s.alice, "Food", "expense")
	catID := int64(cat["id"].(float64))

	created := s.createTransaction(s.alice, map[string]any{
		"categoryId":  catID,
		"amount":      "50.00",
		"type":        "expense",
		"date":        "2024-01-15",
		"description": "groceries",
		"tags":        []string{"food", "weekly"},
	})
	id := int64(created["id"].(float64))
	assert.Equal(s.T(), "50.00", created["amount"], "amount is a decimal string")
	assert.Equal(s.T(), "2024-01-15", created["date"])

	resp, raw := s.request(http.MethodGet, fmt.Sprintf("/api/transactions/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &got))
	assert.Equal(s.T(), "groceries", got["description"])
	assert.Equal(s.T(), float64(catID), got["categoryId"])

	resp, raw = s.request(http.MethodPut, fmt.Sprintf("/api/transactions/%d?userId=%d", id, s.alice),
		map[string]any{"amount": "75.50"})
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(s.T(), json.Unmarshal(raw, &got))
	assert.Equal(s.T(), "75.50", got["amount"])
	assert.Equal(s.T(), "groceries", got["description"], "other fields untouched")

	resp, _ = s.request(http.MethodDelete, fmt.Sprintf("/api/transactions/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusNoContent, resp.StatusCode)

	resp, _ = s.request(http.MethodGet, fmt.Sprintf("/api/transactions/%d?userId=%d", id, s.alice), nil)
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestTransactionUpdateDetachesCategory() {
	cat := s.createCategory(s.alice, "Food", "expense")
	created := s.createTransaction(s.alice, map[string]any{
		"categoryId": int64(cat["id"].(float64)),
		"amount":     "10.00",
		"type":       "expense",
		"date":       "2024-01-15",
	})
	id := int64(created["id"].(float64))

	resp, raw := s.request(http.MethodPut, fmt.Sprintf("/api/transactions/%d?userId=%d", id, s.alice),
		map[string]any{"categoryId": nil})
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode, string(raw))
	var got map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &got))
	assert.Nil(s.T(), got["categoryId"])
}

func (s *ServerTestSuite) TestTransactionValidationErrors() {
	resp, raw := s.request(http.MethodPost, "/api/transactions", map[string]any{
		"userId": s.alice,
		"amount": "not-a-number",
		"type":   "loan",
	})
	assert.Equal(s.T(), http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	assert.GreaterOrEqual(s.T(), len(body.Errors), 3, "amount, type, and date all reported: %v", body.Errors)
}

func (s *ServerTestSuite) TestTransactionListFilters() {
	s.createTransaction(s.alice, map[string]any{
		"amount": "10.00", "type": "expense", "date": "2024-01-10",
	})
	s.createTransaction(s.alice, map[string]any{
		"amount": "20.00", "type": "expense", "date": "2024-02-10",
	})
	s.createTransaction(s.alice, map[string]any{
		"amount": "500.00", "type": "income", "date": "2024-01-20",
	})

	resp, raw := s.request(http.MethodGet,
		fmt.Sprintf("/api/transactions?userId=%d&startDate=2024-01-01&endDate=2024-01-31", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &list))
	assert.Len(s.T(), list, 2)

	resp, raw = s.request(http.MethodGet,
		fmt.Sprintf("/api/transactions?userId=%d&type=income", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.NoError(s.T(), json.Unmarshal(raw, &list))
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), "500.00", list[0]["amount"])

	resp, raw = s.request(http.MethodGet,
		fmt.Sprintf("/api/transactions?userId=%d&type=loan", s.alice), nil)
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode, string(raw))
}

func (s *ServerTestSuite) TestCrossUserProbingIs404() {
	cat := s.createCategory(s.alice, "Food", "expense")
	catID := int64(cat["id"].(float64))
	created := s.createTransaction(s.alice, map[string]any{
		"amount": "10.00", "type": "expense", "date": "2024-01-10",
	})
	txID := int64(created["id"].(float64))

	for _, path := range []string{
		fmt.Sprintf("/api/categories/%d?userId=%d", catID, s.bob),
		fmt.Sprintf("/api/transactions/%d?userId=%d", txID, s.bob),
	} {
		resp, _ := s.request(http.MethodGet, path, nil)
		assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode, path)
		resp, _ = s.request(http.MethodDelete, path, nil)
		assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode, path)
	}

	// The rows survive for their owner.
	resp, _ := s.request(http.MethodGet, fmt.Sprintf("/api/transactions/%d?userId=%d", txID, s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestSummaryWorkedExample() {
	cat := s.createCategory(s.alice, "Food", "expense")
	catID := int64(cat["id"].(float64))
	s.createTransaction(s.alice, map[string]any{
		"categoryId": catID, "amount": "50.00", "type": "expense", "date": "2024-01-10",
	})
	s.createTransaction(s.alice, map[string]any{
		"categoryId": catID, "amount": "30.00", "type": "expense", "date": "2024-01-12",
	})
	s.createTransaction(s.alice, map[string]any{
		"amount": "500.00", "type": "income", "date": "2024-01-15",
	})

	resp, raw := s.request(http.MethodGet,
		fmt.Sprintf("/api/summary?userId=%d&startDate=2024-01-01&endDate=2024-01-31", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var summary map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &summary))
	assert.Equal(s.T(), "500.00", summary["totalIncome"])
	assert.Equal(s.T(), "80.00", summary["totalExpense"])
	assert.Equal(s.T(), "420.00", summary["balance"])

	resp, raw = s.request(http.MethodGet,
		fmt.Sprintf("/api/spending?userId=%d&startDate=2024-01-01&endDate=2024-01-31", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var rows []map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &rows))
	require.Len(s.T(), rows, 1, "income rows excluded from spending")
	assert.Equal(s.T(), "Food", rows[0]["categoryName"])
	assert.Equal(s.T(), "expense", rows[0]["categoryType"])
	assert.Equal(s.T(), "80.00", rows[0]["totalAmount"])
}

func (s *ServerTestSuite) TestSummaryReversedRangeIs422() {
	resp, _ := s.request(http.MethodGet,
		fmt.Sprintf("/api/summary?userId=%d&startDate=2024-02-01&endDate=2024-01-01", s.alice), nil)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *ServerTestSuite) TestSpendingEmptyRangeIsEmptyArray() {
	resp, raw := s.request(http.MethodGet,
		fmt.Sprintf("/api/spending?userId=%d&startDate=2024-01-01&endDate=2024-01-31", s.alice), nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), "[]", strings.TrimSpace(string(raw)))
}

func (s *ServerTestSuite) TestSummaryCacheInvalidatedOnWrite() {
	query := fmt.Sprintf("/api/summary?userId=%d&startDate=2024-01-01&endDate=2024-12-31", s.alice)

	resp, raw := s.request(http.MethodGet, query, nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var summary map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &summary))
	assert.Equal(s.T(), "0.00", summary["totalIncome"])

	// Same query again to populate and hit the cache, then write and check
	// the next read reflects the new row, not the cached one.
	_, _ = s.request(http.MethodGet, query, nil)
	s.createTransaction(s.alice, map[string]any{
		"amount": "100.00", "type": "income", "date": "2024-06-01",
	})

	resp, raw = s.request(http.MethodGet, query, nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.NoError(s.T(), json.Unmarshal(raw, &summary))
	assert.Equal(s.T(), "100.00", summary["totalIncome"])
	assert.Equal(s.T(), "100.00", summary["balance"])
}

func (s *ServerTestSuite) TestMissingUserIDIs400() {
	for _, path := range []string{
		"/api/categories",
		"/api/transactions",
		"/api/summary",
		"/api/spending",
	} {
		resp, _ := s.request(http.MethodGet, path, nil)
		assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode, path)
	}
}

func (s *ServerTestSuite) TestHealthEndpoints() {
	resp, raw := s.request(http.MethodGet, "/healthz", nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), "ok", string(raw))

	resp, raw = s.request(http.MethodGet, "/readyz", nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), "ready", string(raw))

	resp, raw = s.request(http.MethodGet, "/metrics", nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(s.T(), string(raw), "http_requests_total")
	assert.Contains(s.T(), string(raw), "uptime_seconds")
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestWriteRateLimiting(t *testing.T) {
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer repo.Close()

	user, err := repo.CreateUser(context.Background(), "limited@example.com", "hash")
	require.NoError(t, err)

	srv := NewServer(":0", repo, services.NewCategoryService(repo), services.NewTransactionService(repo, nil), 2)
	defer srv.Shutdown(context.Background())
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	post := func(name string) int {
		body, _ := json.Marshal(map[string]any{"userId": user.ID, "name": name, "type": "expense"})
		resp, err := ts.Client().Post(ts.URL+"/api/categories", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusCreated, post("one"))
	assert.Equal(t, http.StatusCreated, post("two"))
	assert.Equal(t, http.StatusTooManyRequests, post("three"))

	// Reads are not rate limited.
	resp, err := ts.Client().Get(fmt.Sprintf("%s/api/categories?userId=%d", ts.URL, user.ID))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr port stripped",
			remoteAddr: "127.0.0.1:60214",
			want:       "127.0.0.1",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "forwarded-for takes the first hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			want:       "203.0.113.9",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
