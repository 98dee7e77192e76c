package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfhttp "github.com/tradeloom/tradeloom/internal/adapter/http"
	"github.com/tradeloom/tradeloom/internal/config"
	"github.com/tradeloom/tradeloom/internal/domain/customer"
	"github.com/tradeloom/tradeloom/internal/domain/search"
	"github.com/tradeloom/tradeloom/internal/domain/supplier"
	"github.com/tradeloom/tradeloom/internal/domain/tenant"
	"github.com/tradeloom/tradeloom/internal/domain/user"
	"github.com/tradeloom/tradeloom/internal/middleware"
	"github.com/tradeloom/tradeloom/internal/service"
)

const testPassword = "correct-horse-battery"

type testEnv struct {
	t      *testing.T
	router chi.Router
	store  *fakeStore
	acme   *tenant.Tenant
	globex *tenant.Tenant
	guest  *tenant.Tenant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := newFakeStore()
	authCfg := &config.Auth{
		Enabled:           true,
		JWTSecret:         "handler-test-secret-0123456789abcdef",
		AccessTokenExpiry: time.Minute,
		BcryptCost:        4,
	}
	tenancy := &config.Tenancy{
		BaseDomain:   "tradeloom.test",
		GuestEnabled: true,
		GuestSlug:    "guest",
		GuestEmail:   "guest@tradeloom.local",
		SearchLimit:  5,
	}
	lookup := service.NewTenantLookup(store, nil, 0)
	auth := service.NewAuthService(store, lookup, authCfg, tenancy)

	env := &testEnv{
		t:      t,
		store:  store,
		acme:   store.addTenant("acme", "erp.acme.com"),
		globex: store.addTenant("globex", ""),
		guest:  store.addTenant("guest", ""),
	}

	register := func(email string, su, guest bool) *user.User {
		u, err := auth.Register(ctx, &user.CreateRequest{Email: email, Name: email, Password: testPassword, Superuser: su, Guest: guest})
		require.NoError(t, err)
		return u
	}
	alice := register("alice@example.com", false, false)
	rita := register("rita@example.com", false, false)
	multi := register("multi@example.com", false, false)
	register("root@example.com", true, false)
	guestUser := register("guest@tradeloom.local", false, true)

	store.addMembership(env.acme.ID, alice.ID, tenant.RoleUser)
	store.addMembership(env.acme.ID, rita.ID, tenant.RoleReadonly)
	store.addMembership(env.acme.ID, multi.ID, tenant.RoleUser)
	store.addMembership(env.globex.ID, multi.ID, tenant.RoleUser)
	store.addMembership(env.guest.ID, guestUser.ID, tenant.RoleAdmin)

	h := &cfhttp.Handlers{
		Auth:           auth,
		Tenants:        service.NewTenantService(store, lookup, auth, tenancy),
		Searcher:       service.NewSearchService(store, tenancy.SearchLimit),
		Customers:      service.NewCustomerService(store),
		Suppliers:      service.NewSupplierService(store),
		Contacts:       service.NewContactService(store),
		Plants:         service.NewPlantService(store),
		Carriers:       service.NewCarrierService(store),
		PurchaseOrders: service.NewPurchaseOrderService(store, nil),
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(auth, true))
	cfhttp.MountRoutes(r, h, service.NewResolver(lookup, store, tenancy.BaseDomain))
	env.router = r
	return env
}

func (e *testEnv) do(method, path, token string, body any, header map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		if k == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(email string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/auth/login", "", user.LoginRequest{Email: email, Password: testPassword}, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp user.LoginResponse
	require.NoError(e.t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(e.t, resp.AccessToken)
	return resp.AccessToken
}

func tenantHeader(t *tenant.Tenant) map[string]string {
	return map[string]string{middleware.HeaderTenantID: t.Slug}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/v1/auth/login", "", user.LoginRequest{Email: "alice@example.com", Password: "nope-nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_TenantNotMember(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/v1/auth/login", "",
		user.LoginRequest{Email: "alice@example.com", Password: testPassword, Tenant: "globex"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMe_ReturnsMemberships(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/auth/me", env.login("multi@example.com"), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	profile := decode[user.Profile](t, rec)
	assert.Equal(t, "multi@example.com", profile.User.Email)
	assert.Len(t, profile.Memberships, 2)
}

func TestEntities_RequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/customers", "", nil, tenantHeader(env.acme))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomerCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("alice@example.com")
	hdr := tenantHeader(env.acme)

	rec := env.do(http.MethodPost, "/api/v1/customers", token, customer.CreateRequest{Name: "Initech", Code: "C-1"}, hdr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[customer.Customer](t, rec)
	assert.Equal(t, "Initech", created.Name)

	rec = env.do(http.MethodGet, "/api/v1/customers/"+created.ID, token, nil, hdr)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/customers", token, customer.CreateRequest{Name: "Dup", Code: "C-1"}, hdr)
	assert.Equal(t, http.StatusConflict, rec.Code)

	name := "Initech Ltd"
	rec = env.do(http.MethodPut, "/api/v1/customers/"+created.ID, token, customer.UpdateRequest{Name: &name}, hdr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, name, decode[customer.Customer](t, rec).Name)

	rec = env.do(http.MethodGet, "/api/v1/customers", token, nil, hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]customer.Customer](t, rec), 1)

	rec = env.do(http.MethodDelete, "/api/v1/customers/"+created.ID, token, nil, hdr)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/customers/"+created.ID, token, nil, hdr)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerCreate_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/v1/customers", env.login("alice@example.com"),
		customer.CreateRequest{Name: "No code"}, tenantHeader(env.acme))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrossTenantRecordIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	root := env.login("root@example.com")

	rec := env.do(http.MethodPost, "/api/v1/customers", root, customer.CreateRequest{Name: "Acme Only", Code: "A-1"}, tenantHeader(env.acme))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[customer.Customer](t, rec).ID

	rec = env.do(http.MethodGet, "/api/v1/customers/"+id, root, nil, tenantHeader(env.globex))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/v1/customers/"+id, root, nil, tenantHeader(env.globex))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/customers", root, nil, tenantHeader(env.globex))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]customer.Customer](t, rec))
}

func TestTenantResolution_Errors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("ambiguous memberships", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/customers", env.login("multi@example.com"), nil, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "select_tenant", body["hint"])
	})

	t.Run("single membership resolves", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/customers", env.login("alice@example.com"), nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not a member", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/customers", env.login("alice@example.com"), nil, tenantHeader(env.globex))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/customers", env.login("alice@example.com"), nil,
			map[string]string{middleware.HeaderTenantID: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("superuser without selector", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/customers", env.login("root@example.com"), nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReadonlyMemberCannotWrite(t *testing.T) {
	env := newTestEnv(t)
	token := env.login("rita@example.com")
	hdr := tenantHeader(env.acme)

	rec := env.do(http.MethodGet, "/api/v1/customers", token, nil, hdr)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/customers", token, customer.CreateRequest{Name: "X", Code: "X"}, hdr)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentTenant_AnonymousByDomain(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/tenant", "", nil, map[string]string{"Host": "erp.acme.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "domain", body["source"])
	assert.Equal(t, "acme", body["tenant"].(map[string]any)["slug"])

	rec = env.do(http.MethodGet, "/api/v1/tenant", "", nil, map[string]string{"Host": "globex.tradeloom.test:8080"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCurrentTenant_AnonymousHeaderRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/tenant", "", nil, tenantHeader(env.acme))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), env.acme.ID)
}

func TestSearch_TaggedAndScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acme := tenant.MustScope(env.acme.ID, tenant.RoleOwner)
	globex := tenant.MustScope(env.globex.ID, tenant.RoleOwner)

	for i := range 7 {
		_, err := env.store.CreateCustomer(ctx, acme, customer.CreateRequest{Name: "Widget Customer", Code: string(rune('a' + i))})
		require.NoError(t, err)
	}
	_, err := env.store.CreateSupplier(ctx, acme, supplier.CreateRequest{Name: "Widget Supplies", Code: "S-1"})
	require.NoError(t, err)
	_, err = env.store.CreateCustomer(ctx, globex, customer.CreateRequest{Name: "Widget Globex", Code: "G-1"})
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/v1/search?q=widget", env.login("alice@example.com"), nil, tenantHeader(env.acme))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[search.Response](t, rec)
	require.Len(t, resp.Results, search.MaxPerType+1)
	for i := range search.MaxPerType {
		assert.Equal(t, search.TypeCustomer, resp.Results[i].Type)
		assert.NotEqual(t, "Widget Globex", resp.Results[i].Title)
	}
	assert.Equal(t, search.TypeSupplier, resp.Results[search.MaxPerType].Type)
}

func TestSearch_QueryTooShort(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/search?q=w", env.login("alice@example.com"), nil, tenantHeader(env.acme))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/guest", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[user.LoginResponse](t, rec)
	require.NotNil(t, resp.Tenant)
	assert.Equal(t, "guest", resp.Tenant.Slug)

	// The token is bound to the guest tenant without any selector.
	rec = env.do(http.MethodGet, "/api/v1/tenant", resp.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "claim", body["source"])
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/admin/tenants", env.login("alice@example.com"), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	root := env.login("root@example.com")
	rec = env.do(http.MethodPost, "/api/v1/admin/tenants", root, tenant.CreateRequest{Name: "Initech", Slug: "initech"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[tenant.Tenant](t, rec)

	rec = env.do(http.MethodPost, "/api/v1/admin/tenants", root, tenant.CreateRequest{Name: "Initech", Slug: "initech"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/admin/tenants", root, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]tenant.Tenant](t, rec), 4)

	alice, err := env.store.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/v1/admin/tenants/"+created.ID+"/members", root,
		tenant.MembershipRequest{UserID: alice.ID, Role: tenant.RoleManager}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/admin/tenants/"+created.ID+"/members", root, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]tenant.Membership](t, rec), 1)

	rec = env.do(http.MethodGet, "/api/v1/admin/tenants/00000000-0000-0000-0000-000000000001", root, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
