package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/localstore"
	"fintrack/internal/storage"
)

// fakeStore is an in-memory Store and auth.UserStore for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]storage.User
	expenses map[string]core.Expense
	incomes  map[string]core.Income
	savings  map[string]core.MonthlySaving
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]storage.User),
		expenses: make(map[string]core.Expense),
		incomes:  make(map[string]core.Income),
		savings:  make(map[string]core.MonthlySaving),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u storage.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.ErrAlreadyExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) UpdateBudgetConfig(_ context.Context, userID string, cfg core.BudgetConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.Config = cfg
	f.users[userID] = u
	return nil
}

func (f *fakeStore) CreateExpense(_ context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) GetExpense(_ context.Context, userID, id string) (*core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return nil, core.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.expenses[e.ID]
	if !ok || old.UserID != e.UserID {
		return core.ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Expense
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (f *fakeStore) CreateIncome(_ context.Context, in core.Income) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incomes[in.ID] = in
	return nil
}

func (f *fakeStore) DeleteIncome(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.incomes[id]
	if !ok || in.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.incomes, id)
	return nil
}

func (f *fakeStore) ListIncomes(_ context.Context, userID string) ([]core.Income, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Income
	for _, in := range f.incomes {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMonthlySaving(_ context.Context, userID string, month core.MonthKey) (*core.MonthlySaving, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.savings {
		if s.UserID == userID && s.Month == month {
			s := s
			return &s, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeStore) CreateMonthlySaving(_ context.Context, s core.MonthlySaving) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.savings {
		if existing.UserID == s.UserID && existing.Month == s.Month {
			return core.ErrAlreadyExists
		}
	}
	f.savings[s.ID] = s
	return nil
}

func (f *fakeStore) ListMonthlySavings(_ context.Context, userID string) ([]core.MonthlySaving, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.MonthlySaving
	for _, s := range f.savings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (f *fakeStore) DeleteMonthlySaving(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.savings[id]
	if !ok || s.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.savings, id)
	return nil
}

type testEnv struct {
	server *Server
	store  *fakeStore
	cookie *http.Cookie
	userID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	local, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("localstore: %v", err)
	}
	authSvc := auth.NewService(store, auth.NewSessionStore(time.Hour))

	s := NewServer(":0", Deps{
		Store: store,
		Auth:  authSvc,
		Local: local,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	env := &testEnv{server: s, store: store}

	rec := env.do(t, http.MethodPost, "/api/auth/register", `{"email":"alice@example.com","name":"Alice","password":"s3cretpass"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			env.cookie = c
		}
	}
	if env.cookie == nil {
		t.Fatal("register did not set session cookie")
	}
	var u userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	env.userID = u.ID
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if env.cookie != nil {
		req.AddCookie(env.cookie)
	}
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz: status %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz: status %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/auth/me", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestUnauthorizedWithoutCookie(t *testing.T) {
	env := newTestEnv(t)
	env.cookie = nil
	rec := env.do(t, http.MethodGet, "/api/expenses", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/expenses",
		`{"amount":"123.45","category":"Food & Dining","description":"groceries","date":"2025-11-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.AmountPaise != 12345 {
		t.Errorf("amount_paise = %d, want 12345", created.AmountPaise)
	}

	rec = env.do(t, http.MethodPut, "/api/expenses/"+created.ID,
		`{"amount":"150.00","category":"Shopping","description":"groceries and more","date":"2025-11-06"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Errorf("update response created_at = %s, want %s", updated.CreatedAt, created.CreatedAt)
	}

	rec = env.do(t, http.MethodGet, "/api/expenses", "")
	var list []expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Category != "Shopping" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = env.do(t, http.MethodDelete, "/api/expenses/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/expenses/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad amount", `{"amount":"-5","category":"Other","description":"x","date":"2025-11-05"}`},
		{"bad category", `{"amount":"10","category":"Gadgets","description":"x","date":"2025-11-05"}`},
		{"empty description", `{"amount":"10","category":"Other","description":"  ","date":"2025-11-05"}`},
		{"bad date", `{"amount":"10","category":"Other","description":"x","date":"05/11/2025"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/expenses", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status %d, want 422 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestExpenseFilterParams(t *testing.T) {
	env := newTestEnv(t)

	payloads := []string{
		`{"amount":"10","category":"Food & Dining","description":"dosa breakfast","date":"2025-11-01"}`,
		`{"amount":"20","category":"Transportation","description":"metro card","date":"2025-11-10"}`,
		`{"amount":"30","category":"Food & Dining","description":"dinner out","date":"2025-12-01"}`,
	}
	for _, p := range payloads {
		if rec := env.do(t, http.MethodPost, "/api/expenses", p); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %s", rec.Body.String())
		}
	}

	var list []expenseResponse
	rec := env.do(t, http.MethodGet, "/api/expenses?category=Food+%26+Dining&to=2025-11-30", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Description != "dosa breakfast" {
		t.Fatalf("unexpected filtered list: %+v", list)
	}

	// malformed date boundary is dropped, not excluding
	rec = env.do(t, http.MethodGet, "/api/expenses?from=garbage", "")
	list = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("fail-open filter returned %d entries, want 3", len(list))
	}

	rec = env.do(t, http.MethodGet, "/api/expenses?q=METRO", "")
	list = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Description != "metro card" {
		t.Errorf("case-insensitive search failed: %+v", list)
	}
}

func TestDashboardOverview(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPut, "/api/profile", `{"salary":"50000","renewal_day":1}`); rec.Code != http.StatusOK {
		t.Fatalf("profile: %s", rec.Body.String())
	}

	today := time.Now().Format("2006-01-02")
	body := fmt.Sprintf(`{"amount":"1200","category":"Food & Dining","description":"groceries","date":"%s"}`, today)
	if rec := env.do(t, http.MethodPost, "/api/expenses", body); rec.Code != http.StatusCreated {
		t.Fatalf("expense: %s", rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d, body %s", rec.Code, rec.Body.String())
	}
	var dash dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.Salary != "₹50000.00" {
		t.Errorf("salary = %s", dash.Salary)
	}
	if dash.RemainingPaise != 4880000 {
		t.Errorf("remaining_paise = %d, want 4880000", dash.RemainingPaise)
	}
	if len(dash.ByCategory) != 1 || dash.ByCategory[0].Category != "Food & Dining" {
		t.Errorf("unexpected breakdown: %+v", dash.ByCategory)
	}
	if len(dash.Trend) != 6 {
		t.Errorf("trend has %d points, want 6", len(dash.Trend))
	}
	if diff := dash.SavingsRate - 0.976; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("savings_rate = %g, want 0.976", dash.SavingsRate)
	}
	if dash.AllTimeExpenses != "₹1200.00" {
		t.Errorf("all_time_expenses = %s", dash.AllTimeExpenses)
	}

	// a write invalidates the cached overview
	body = fmt.Sprintf(`{"amount":"800","category":"Shopping","description":"shirt","date":"%s"}`, today)
	if rec := env.do(t, http.MethodPost, "/api/expenses", body); rec.Code != http.StatusCreated {
		t.Fatalf("expense: %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/dashboard", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.RemainingPaise != 4800000 {
		t.Errorf("after write remaining_paise = %d, want 4800000", dash.RemainingPaise)
	}
	if dash.AllTimeExpenses != "₹2000.00" {
		t.Errorf("after write all_time_expenses = %s", dash.AllTimeExpenses)
	}
}

func TestDashboardTriggersSnapshot(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPut, "/api/profile", `{"salary":"50000"}`); rec.Code != http.StatusOK {
		t.Fatalf("profile: %s", rec.Body.String())
	}

	// age the account so the previous month is eligible
	env.store.mu.Lock()
	u := env.store.users[env.userID]
	u.CreatedAt = time.Now().AddDate(0, -3, 0)
	env.store.users[env.userID] = u
	env.store.mu.Unlock()

	now := time.Now().UTC()
	lastMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	body := fmt.Sprintf(`{"amount":"54","category":"Other","description":"spent last month","date":"%s"}`,
		time.Date(lastMonth.Year(), lastMonth.Month(), 10, 0, 0, 0, 0, time.UTC).Format("2006-01-02"))
	if rec := env.do(t, http.MethodPost, "/api/expenses", body); rec.Code != http.StatusCreated {
		t.Fatalf("expense: %s", rec.Body.String())
	}

	if rec := env.do(t, http.MethodGet, "/api/dashboard", ""); rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/savings", "")
	var savings []savingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &savings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(savings) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(savings))
	}
	want := core.MonthKeyFor(lastMonth)
	if savings[0].Month != string(want) {
		t.Errorf("snapshot month = %s, want %s", savings[0].Month, want)
	}
	if savings[0].SavedPaise != 4994600 {
		t.Errorf("saved_paise = %d, want 4994600", savings[0].SavedPaise)
	}

	// second load is idempotent
	env.do(t, http.MethodGet, "/api/dashboard", "")
	rec = env.do(t, http.MethodGet, "/api/savings", "")
	savings = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &savings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(savings) != 1 {
		t.Errorf("expected snapshot count to stay 1, got %d", len(savings))
	}
}

func TestRecurringAndLabels(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/recurring", `{"label":"Rent","amount":"12000","category":"Bills & Utilities"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("recurring create: %s", rec.Body.String())
	}
	var re recurringResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &re); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard", "")
	var dash dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.RecurringTotal != "₹12000.00" {
		t.Errorf("recurring total = %s", dash.RecurringTotal)
	}

	if rec := env.do(t, http.MethodDelete, "/api/recurring/"+re.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("recurring delete: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/labels", `{"name":"Coffee","amount":"250","category":"Food & Dining"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("label create: %s", rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/labels", "")
	var labels []labelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &labels); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "Coffee" {
		t.Errorf("unexpected labels: %+v", labels)
	}
}

func TestProfileValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/profile", `{"renewal_day":32}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("renewal_day 32: status %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/profile", `{"renewal_day":15,"salary":"75000.50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile update: %s", rec.Body.String())
	}
	var u userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.RenewalDay != 15 || u.Salary != "₹75000.50" {
		t.Errorf("unexpected profile: %+v", u)
	}
}

func TestExpenseReportPDF(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/api/expenses",
		`{"amount":"99","category":"Other","description":"misc","date":"2025-11-05"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expense: %s", rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/reports/expenses.pdf?months=2025-11", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}

	rec = env.do(t, http.MethodGet, "/api/reports/expenses.pdf?months=november", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: status %d, want 400", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/api/auth/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/auth/me", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status %d, want 401", rec.Code)
	}
}
