package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/izerwaren/b2bportal/internal/config"
	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/pricing"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/repository/memory"
	"github.com/izerwaren/b2bportal/internal/service"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	repos  *repository.Repositories
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cfg := &config.Config{
		Environment: "test",
		RFQ:         config.RFQConfig{QuoteDefaultValidDays: 30, AssignMaxRetries: 3, CartMaxRetries: 3},
	}
	policies, err := pricing.NewPolicyStore(pricing.DefaultPolicy(), logger)
	require.NoError(t, err)

	repos := memory.NewRepositories()
	catalog := service.NewCatalogService(nil, repos, logger)
	services := service.NewServices(cfg, repos, catalog, nil, policies, logger, nil)

	return &testAPI{t: t, router: NewRouter(cfg, repos, services, logger), repos: repos}
}

// principal stores a principal and returns its plain API key
func (a *testAPI) principal(role domain.Role, mutate func(p *domain.Principal)) (string, *domain.Principal) {
	a.t.Helper()
	key := "key-" + uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(a.t, err)

	p := &domain.Principal{Name: string(role), APIKeyHash: string(hash), Role: role, IsActive: true}
	if role == domain.RoleCustomer {
		p.DealerTier = domain.DealerTierPremium
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(a.t, a.repos.Principal.Create(context.Background(), p))
	return key, p
}

func (a *testAPI) rep(capacity int) string {
	a.t.Helper()
	rep := &domain.AccountRep{Name: "dana", MaxRfqCapacity: &capacity, IsActive: true}
	require.NoError(a.t, a.repos.AccountRep.Create(context.Background(), rep))
	key, _ := a.principal(domain.RoleRep, func(p *domain.Principal) { p.RepID = &rep.ID })
	return key
}

func (a *testAPI) do(method, path, key string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	a := newTestAPI(t)
	customerKey, _ := a.principal(domain.RoleCustomer, nil)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/carts", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/carts", "not-a-key", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/carts", customerKey, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/admin/rfq", customerKey, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/rep/rfq", customerKey, nil).Code)
}

func TestCartEndpoints(t *testing.T) {
	a := newTestAPI(t)
	key, _ := a.principal(domain.RoleCustomer, nil)
	require.NoError(t, a.repos.Catalog.Upsert(context.Background(), &domain.CatalogEntry{
		ProductID: "p1",
		VariantID: "v1",
		SKU:       "CLEAT-6",
		Title:     "Deck cleat 6in",
		ListPrice: decimal.RequireFromString("20.00"),
		InStock:   true,
	}))

	w := a.do(http.MethodPost, "/api/carts", key, map[string]string{"name": "spring refit"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cart service.CartView
	decode(t, w, &cart)
	base := "/api/carts/" + cart.ID.String()

	w = a.do(http.MethodPost, base+"/items", key, map[string]interface{}{"productId": "p1", "variantId": "v1", "quantity": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &cart)
	require.Len(t, cart.Summary.Items, 1)
	assert.Equal(t, "72.00", cart.Summary.TotalEstimated.StringFixed(2))

	w = a.do(http.MethodPost, base+"/items", key, map[string]interface{}{"productId": "p1", "variantId": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, base+"/validate", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report service.ValidationReport
	decode(t, w, &report)
	assert.True(t, report.CanCheckout)

	w = a.do(http.MethodGet, base+"/export.csv", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "itemId,sku,title"))
	assert.Contains(t, w.Body.String(), "CLEAT-6")

	w = a.do(http.MethodPost, base+"/checkout", key, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	itemPath := base + "/items/" + cart.Summary.Items[0].ID.String()
	w = a.do(http.MethodPatch, itemPath, key, map[string]int{"quantity": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	otherKey, _ := a.principal(domain.RoleCustomer, nil)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, base, otherKey, nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base, key, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, base, key, nil).Code)
}

func TestRFQWorkflow(t *testing.T) {
	a := newTestAPI(t)
	customerKey, _ := a.principal(domain.RoleCustomer, nil)
	adminKey, _ := a.principal(domain.RoleAdmin, nil)
	repKey := a.rep(1)

	w := a.do(http.MethodPost, "/api/rfq", customerKey, map[string]interface{}{
		"customerMessage": "pricing for 40 boats",
		"items": []map[string]interface{}{
			{"productTitle": "Bilge pump", "sku": "BP-500", "quantity": 40},
			{"productTitle": "Float switch", "sku": "FS-1", "quantity": 40},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var request domain.RfqRequest
	decode(t, w, &request)
	assert.Equal(t, domain.RfqStatusPending, request.Status)
	rfqPath := "/api/rep/rfq/" + request.ID.String()

	w = a.do(http.MethodPatch, rfqPath+"/status", repKey, map[string]string{"status": "QUOTED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/admin/rfq/auto-assign", adminKey, map[string]interface{}{"rfqIds": []string{request.ID.String()}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result service.AssignmentResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Assigned)

	items := []map[string]interface{}{
		{"itemId": request.Items[0].ID.String(), "unitPrice": "89.50"},
		{"itemId": request.Items[1].ID.String(), "unitPrice": "12.25"},
	}
	w = a.do(http.MethodPost, rfqPath+"/quote", repKey, map[string]interface{}{"items": items, "quotedTotal": "1.00"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, rfqPath+"/quote", repKey, map[string]interface{}{"items": items[:1]})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, rfqPath+"/quote", repKey, map[string]interface{}{"items": items, "quotedTotal": "4070.00", "validDays": 14})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, domain.RfqStatusQuoted, request.Status)
	assert.Equal(t, "4070.00", request.QuotedTotal.StringFixed(2))

	w = a.do(http.MethodPost, "/api/rfq/"+request.ID.String()+"/respond", customerKey, map[string]string{"decision": "ACCEPTED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, domain.RfqStatusAccepted, request.Status)

	w = a.do(http.MethodPost, "/api/rfq/"+request.ID.String()+"/respond", customerKey, map[string]string{"decision": "DECLINED"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodGet, "/api/admin/rfq/"+request.ID.String()+"/events", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Events []domain.RfqEvent `json:"events"`
	}
	decode(t, w, &events)
	assert.Len(t, events.Events, 4)
}

func TestClaimAtCapacity(t *testing.T) {
	a := newTestAPI(t)
	customerKey, _ := a.principal(domain.RoleCustomer, nil)
	repKey := a.rep(1)

	submit := func() string {
		w := a.do(http.MethodPost, "/api/rfq", customerKey, map[string]interface{}{
			"items": []map[string]interface{}{{"productTitle": "Cleat", "sku": "C-1", "quantity": 2}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var r domain.RfqRequest
		decode(t, w, &r)
		return r.ID.String()
	}
	first, second := submit(), submit()

	w := a.do(http.MethodPatch, "/api/rep/rfq/"+first+"/status", repKey, map[string]string{"status": "IN_REVIEW"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPatch, "/api/rep/rfq/"+second+"/status", repKey, map[string]string{"status": "IN_REVIEW"})
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "capacity_exceeded", body["code"])

	w = a.do(http.MethodGet, "/api/rep/rfq", repKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rfqs []domain.RfqRequest `json:"rfqs"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Rfqs, 1)

	w = a.do(http.MethodGet, "/api/rep/rfq?queue=pending", repKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Rfqs, 1)
	assert.Equal(t, second, list.Rfqs[0].ID.String())
}

func TestBulkAssignValidation(t *testing.T) {
	a := newTestAPI(t)
	adminKey, _ := a.principal(domain.RoleAdmin, nil)

	w := a.do(http.MethodPost, "/api/admin/rfq/bulk-assign", adminKey, map[string]interface{}{"rfqIds": []string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/api/admin/rfq/bulk-assign", adminKey, map[string]interface{}{
		"rfqIds":        []string{uuid.NewString()},
		"assignedRepId": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
