package router

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"subhlabh/internal/config"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"
	"subhlabh/internal/service"
	"subhlabh/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

const testSecret = "router-test-secret"

type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	owner  *model.ShopUser
	token  string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:                      "test",
		AllowedOrigins:           "*",
		JWTSecret:                testSecret,
		JWTExpirationHours:       8,
		JWTRefreshHours:          24,
		SessionSecret:            "router-test-session-secret-0123456789",
		DefaultTimezone:          "UTC",
		LowStockThreshold:        10,
		AccountDeletionGraceDays: 30,
		ReceiptStoragePath:       t.TempDir(),
	}
	owner := testutil.CreateUser(t, db, "api@example.com")
	return &apiEnv{t: t, db: db, engine: New(cfg, db, nil, nil), owner: owner, token: accessToken(t, owner.ID)}
}

func accessToken(t *testing.T, owner uuid.UUID) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": owner.String(),
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func jsonReader(t *testing.T, body any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return &buf
}

func (e *apiEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, jsonReader(e.t, body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newAPIEnv(t)
	for _, path := range []string{"/dashboard", "/api/products/search?q=a", "/sales"} {
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestHealthWithoutRedis(t *testing.T) {
	e := newAPIEnv(t)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestBillingPayCreditDeleteFlow(t *testing.T) {
	e := newAPIEnv(t)
	p := testutil.CreateProduct(t, e.db, e.owner.ID, "Sugar", "45", "10")
	c := testutil.CreateCustomer(t, e.db, e.owner.ID, "Meena", "9811111111", "0")

	w := e.do(http.MethodPost, "/billing", map[string]any{
		"customer_id":    c.ID.String(),
		"payment_method": "cash",
		"is_paid":        false,
		"items":          []map[string]any{{"product_id": p.ID.String(), "quantity": "4"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bill := decode[map[string]any](t, w)
	assert.Equal(t, true, bill["success"])
	assert.Equal(t, "180", bill["total_amount"])
	saleID := bill["sale_id"].(string)

	w = e.do(http.MethodPost, "/customers/"+c.ID.String()+"/pay-credit", map[string]any{"amount": "80"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pay := decode[map[string]any](t, w)
	assert.Equal(t, "100", pay["credit_amount"])

	w = e.do(http.MethodPost, "/customers/"+c.ID.String()+"/pay-credit", map[string]any{"amount": "500"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["success"])

	w = e.do(http.MethodPost, "/sales/"+saleID+"/delete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, w)["success"])

	assert.Equal(t, "10", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.String())
	// 180 reversed from a balance of 100 clamps at zero.
	assert.True(t, testutil.Reload[model.Customer](t, e.db, c.ID).CreditAmount.IsZero())

	w = e.do(http.MethodPost, "/sales/"+saleID+"/delete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBillingValidationErrors(t *testing.T) {
	e := newAPIEnv(t)

	w := e.do(http.MethodPost, "/billing", map[string]any{"payment_method": "cash", "is_paid": true})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decode[map[string]any](t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "items")

	w = e.do(http.MethodPost, "/billing", map[string]any{
		"payment_method": "bitcoin", "is_paid": true,
		"items": []map[string]any{{"custom_name": "Repair", "custom_price": "50", "quantity": "1"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	p := testutil.CreateProduct(t, e.db, e.owner.ID, "Oil", "150", "1")
	w = e.do(http.MethodPost, "/billing", map[string]any{
		"payment_method": "upi", "is_paid": true,
		"items": []map[string]any{{"product_id": p.ID.String(), "quantity": "2"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")
}

func TestPayCreditFormFlashAndRedirect(t *testing.T) {
	e := newAPIEnv(t)
	c := testutil.CreateCustomer(t, e.db, e.owner.ID, "Ravi", "9822222222", "300")
	target := "/customers/" + c.ID.String()

	post := func(amount string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target+"/pay-credit", strings.NewReader(url.Values{"amount": {amount}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+e.token)
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, req)
		return w
	}

	w := post("-5")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, target, w.Header().Get("Location"))
	assert.Equal(t, "300", testutil.Reload[model.Customer](t, e.db, c.ID).CreditAmount.String(), "invalid amount is a no-op")

	w = post("120")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "180", testutil.Reload[model.Customer](t, e.db, c.ID).CreditAmount.String())

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+e.token)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	detail := httptest.NewRecorder()
	e.engine.ServeHTTP(detail, req)
	require.Equal(t, http.StatusOK, detail.Code)

	body := decode[map[string]any](t, detail)
	flashes, ok := body["flashes"].([]any)
	require.True(t, ok, detail.Body.String())
	require.NotEmpty(t, flashes)
	last := flashes[len(flashes)-1].(map[string]any)
	assert.Equal(t, "success", last["type"])
	assert.Contains(t, last["message"], "120")
}

func TestBrowserSessionPayCreditFlow(t *testing.T) {
	e := newAPIEnv(t)
	users := repository.NewShopUserRepository(e.db)
	accounts := service.NewAccountService(users, service.NewClock(users, "UTC"), 30)
	acct, err := accounts.CreateAccount(context.Background(), service.NewAccount{
		Email: "counter@example.com", Password: "kirana-2026", ShopName: "Counter", Verified: true,
	})
	require.NoError(t, err)
	c := testutil.CreateCustomer(t, e.db, uuid.MustParse(acct.ID), "Farida", "9833333333", "200")
	target := "/customers/" + c.ID.String()

	jar := map[string]*http.Cookie{}
	send := func(req *http.Request) *httptest.ResponseRecorder {
		for _, ck := range jar {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, req)
		for _, ck := range w.Result().Cookies() {
			jar[ck.Name] = ck
		}
		return w
	}

	login := httptest.NewRequest(http.MethodPost, "/auth/login",
		jsonReader(t, map[string]any{"email": "counter@example.com", "password": "kirana-2026"}))
	login.Header.Set("Content-Type", "application/json")
	w := send(login)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, jar, "subhlabh_auth")
	assert.True(t, jar["subhlabh_auth"].HttpOnly)

	form := httptest.NewRequest(http.MethodPost, target+"/pay-credit", strings.NewReader(url.Values{"amount": {"50"}}.Encode()))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = send(form)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, target, w.Header().Get("Location"))
	assert.Equal(t, "150", testutil.Reload[model.Customer](t, e.db, c.ID).CreditAmount.String())

	w = send(httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	flashes, ok := decode[map[string]any](t, w)["flashes"].([]any)
	require.True(t, ok, w.Body.String())
	assert.NotEmpty(t, flashes)

	// The session belongs to its own owner, not to the env's token owner.
	other := testutil.CreateCustomer(t, e.db, e.owner.ID, "Not mine", "9833333334", "10")
	w = send(httptest.NewRequest(http.MethodGet, "/customers/"+other.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = send(httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchEndpoints(t *testing.T) {
	e := newAPIEnv(t)
	testutil.CreateProduct(t, e.db, e.owner.ID, "Basmati Rice", "90", "5")
	testutil.CreateCustomer(t, e.db, e.owner.ID, "Sunita", "9833333333", "0")
	other := testutil.CreateUser(t, e.db, "other@example.com")
	testutil.CreateProduct(t, e.db, other.ID, "Basmati Gold", "120", "5")

	w := e.do(http.MethodGet, "/api/products/search?q=basmati", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products := decode[[]map[string]any](t, w)
	require.Len(t, products, 1, "other owners' products are invisible")
	assert.Equal(t, "Basmati Rice", products[0]["name"])
	assert.Equal(t, true, products[0]["is_low_stock"])

	w = e.do(http.MethodGet, "/api/products/search?q=", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = e.do(http.MethodGet, "/api/customers/search?q=98333", nil)
	require.Equal(t, http.StatusOK, w.Code)
	customers := decode[[]map[string]any](t, w)
	require.Len(t, customers, 1)
	assert.Equal(t, "Sunita", customers[0]["name"])
}

func TestOfferDeleteReportsDeactivation(t *testing.T) {
	e := newAPIEnv(t)
	now := time.Now().UTC()
	o := testutil.CreateOffer(t, e.db, e.owner.ID, model.OfferFlat, "10", now.Add(-time.Hour), now.Add(time.Hour))

	w := e.do(http.MethodDelete, "/offers/"+o.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, w)["deactivated"])

	w = e.do(http.MethodGet, "/offers/"+o.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardAndReports(t *testing.T) {
	e := newAPIEnv(t)
	p := testutil.CreateProduct(t, e.db, e.owner.ID, "Ghee", "500", "3")
	w := e.do(http.MethodPost, "/billing", map[string]any{
		"payment_method": "card", "is_paid": true,
		"items": []map[string]any{{"product_id": p.ID.String(), "quantity": "1"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decode[map[string]any](t, w)["metrics"].(map[string]any)
	assert.Equal(t, "500", metrics["today_sales"])

	w = e.do(http.MethodGet, "/reports?date_from=2020-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, report["sale_count"])

	w = e.do(http.MethodGet, "/reports?date_from=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func readCSV(t *testing.T, w *httptest.ResponseRecorder) [][]string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVDownloads(t *testing.T) {
	e := newAPIEnv(t)
	sugar := testutil.CreateProduct(t, e.db, e.owner.ID, "Sugar", "45", "10")
	delivery := testutil.CreateService(t, e.db, e.owner.ID, "Delivery", "30")
	c := testutil.CreateCustomer(t, e.db, e.owner.ID, "Meena, Sharma", "9811111111", "0")

	w := e.do(http.MethodPost, "/billing", map[string]any{
		"customer_id": c.ID.String(), "payment_method": "cash", "is_paid": false,
		"items": []map[string]any{
			{"product_id": sugar.ID.String(), "quantity": "2"},
			{"product_id": delivery.ID.String(), "quantity": "1"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = e.do(http.MethodPost, "/billing", map[string]any{
		"payment_method": "upi", "is_paid": true,
		"items": []map[string]any{{"product_id": sugar.ID.String(), "quantity": "1"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("sales", func(t *testing.T) {
		w := e.do(http.MethodGet, "/sales?format=csv", nil)
		rows := readCSV(t, w)
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="sales.csv"`)
		require.Len(t, rows, 4, "header plus one row per sale item")
		assert.Equal(t, "Sale ID", rows[0][0])

		rows = readCSV(t, e.do(http.MethodGet, "/sales?format=csv&payment_method=udhar", nil))
		require.Len(t, rows, 3)
		for _, r := range rows[1:] {
			assert.Equal(t, "Meena, Sharma", r[3])
			assert.Equal(t, "Udhar", r[6])
			assert.Equal(t, "120.00", r[7])
		}

		rows = readCSV(t, e.do(http.MethodGet, "/sales?format=csv&payment_method=upi", nil))
		require.Len(t, rows, 2)
		assert.Equal(t, "Walk-in Customer", rows[1][3])
		assert.Equal(t, "Sugar", rows[1][8])

		w = e.do(http.MethodGet, "/sales?format=xml", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("products", func(t *testing.T) {
		w := e.do(http.MethodGet, "/products/export", nil)
		rows := readCSV(t, w)
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="products.csv"`)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Delivery", model.ProductTypeService}, rows[1][:2])
		assert.Empty(t, rows[1][5])
		assert.Equal(t, "Sugar", rows[2][0])
		assert.Equal(t, "7.00", rows[2][5])
	})

	t.Run("reports", func(t *testing.T) {
		w := e.do(http.MethodGet, "/reports?format=csv", nil)
		rows := readCSV(t, w)
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="report_monthly.csv"`)
		require.Len(t, rows, 2)
		assert.Equal(t, "Month", rows[0][0])
		assert.Equal(t, "165.00", rows[1][1])

		rows = readCSV(t, e.do(http.MethodGet, "/reports?format=csv&report=products", nil))
		var sugarRow []string
		for _, r := range rows[1:] {
			if r[0] == "Sugar" {
				sugarRow = r
			}
		}
		require.NotNil(t, sugarRow)
		assert.True(t, testutil.D("3").Equal(testutil.D(sugarRow[1])))
		assert.Equal(t, "135.00", sugarRow[2])

		w = e.do(http.MethodGet, "/reports?format=csv&report=weekly", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAccountEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	w := e.do(http.MethodPut, "/account", map[string]any{"timezone": "Asia/Kolkata"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Asia/Kolkata", decode[map[string]any](t, w)["timezone"])

	w = e.do(http.MethodPost, "/account/deletion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["is_pending_deletion"])

	w = e.do(http.MethodDelete, "/account/deletion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["is_pending_deletion"])
}
