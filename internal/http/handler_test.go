package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/auth"
	"github.com/nurpe/contracts-service/internal/dbtest"
	"github.com/nurpe/contracts-service/internal/excel"
	"github.com/nurpe/contracts-service/internal/http/middleware"
	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/service"
	"github.com/nurpe/contracts-service/internal/storage"
)

type testServer struct {
	router   *gin.Engine
	parser   *auth.Parser
	fixtures dbtest.Fixtures
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.Open(t)
	files, err := storage.NewLocalStorage(t.TempDir(), 0)
	require.NoError(t, err)

	contractRepo := repository.NewContractRepository(database)
	refRepo := repository.NewReferenceRepository(database)
	contracts := service.NewContractService(contractRepo, refRepo, files, excel.NewGenerator(), zerolog.Nop(),
		service.WithClock(func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }))
	refs := service.NewReferenceService(refRepo, zerolog.Nop())

	parser := auth.NewParser("test-secret")
	handler := NewHandler(contracts, refs, zerolog.Nop())
	return testServer{
		router:   NewRouter(handler, middleware.Auth(parser), "test", nil, zerolog.Nop()),
		parser:   parser,
		fixtures: dbtest.Seed(t, database),
	}
}

func (s testServer) do(t *testing.T, role model.UserRole, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if role != "" {
		token, err := s.parser.Issue(model.Principal{UserID: uuid.New(), Role: role}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s testServer) contractFields(t *testing.T, kits interface{}) map[string]string {
	t.Helper()
	raw, err := json.Marshal(kits)
	require.NoError(t, err)
	return map[string]string{
		"customer_name":    "МБОУ Школа №1",
		"customer_tax_id":  "6311111111",
		"start_date":       "2024-01-01",
		"end_date":         "31.01.2024",
		"implementator_id": s.fixtures.Implementator.ID.String(),
		"oko":              "on",
		"kits":             string(raw),
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_HealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "", httptest.NewRequest(http.MethodGet, "/contracts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContracts_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	fields := s.contractFields(t, []map[string]interface{}{
		{"number": 2, "district_id": s.fixtures.District.ID, "address": "ул. Мира, 2"},
		{"number": 1, "district_id": s.fixtures.OtherDistrict.ID, "address": "ул. Ленина, 1"},
	})
	rec := s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPost, "/contracts", fields, map[string]string{"file1": "scan.pdf"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[contractResponse](t, rec)
	assert.Equal(t, model.ContractStatusCompleted, created.Status)
	assert.Equal(t, "2024-01-31", created.EndDate)
	assert.True(t, created.Oko)
	assert.False(t, created.GosServices)
	require.Len(t, created.Kits, 2)
	assert.Equal(t, 1, created.Kits[0].Number)
	require.Len(t, created.Files, 1)
	assert.Equal(t, "PDF", created.Files[0].Extension)
	assert.Equal(t, "/contracts/"+created.ID.String()+"/files/1", created.Files[0].URL)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, created.Files[0].URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 scan.pdf", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	edit := s.contractFields(t, []map[string]interface{}{
		{"id": created.Kits[0].ID, "number": 3, "district_id": s.fixtures.OtherDistrict.ID, "address": "ул. Ленина, 1"},
	})
	edit["end_date"] = "2024-12-31"
	rec = s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPut, "/contracts/"+created.ID.String(), edit, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[contractResponse](t, rec)
	assert.Equal(t, model.ContractStatusActive, updated.Status)
	require.Len(t, updated.Kits, 1)
	assert.Equal(t, 3, updated.Kits[0].Number)
	assert.Equal(t, created.Kits[0].ID, updated.Kits[0].ID)

	rec = s.do(t, model.UserRoleManager, jsonRequest(t, http.MethodPatch, "/contracts/"+created.ID.String()+"/checklist",
		map[string]bool{"gos_services": true, "spolokh": true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checked := decode[contractResponse](t, rec)
	assert.True(t, checked.GosServices)
	assert.False(t, checked.Oko)
	assert.Len(t, checked.Kits, 1)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contracts?q="+url.QueryEscape("Школа")+"&status=active", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.Page[contractResponse]](t, rec)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 10, page.PageSize)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contracts/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contracts-20240201.xlsx")

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contracts/"+created.ID.String()+"/pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodDelete, "/contracts/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, model.UserRoleManager, httptest.NewRequest(http.MethodDelete, "/contracts/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contracts/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContracts_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	fields := s.contractFields(t, []map[string]interface{}{
		{"number": 4, "district_id": s.fixtures.District.ID},
		{"number": 4, "district_id": s.fixtures.District.ID},
	})
	fields["start_date"] = "2024-03-01"
	rec := s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPost, "/contracts", fields, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	body := decode[struct {
		Error  string `json:"error"`
		Fields []struct {
			Fields []string `json:"fields"`
			Code   string   `json:"code"`
		} `json:"fields"`
	}](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	codes := map[string]bool{}
	for _, f := range body.Fields {
		codes[f.Code] = true
	}
	assert.True(t, codes["date_range"])
	assert.True(t, codes["missing_attachment"])

	fields = s.contractFields(t, []interface{}{})
	fields["start_date"] = "01/02/2024"
	rec = s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPost, "/contracts", fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields = s.contractFields(t, []interface{}{})
	fields["kits"] = "{not json"
	rec = s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPost, "/contracts", fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, model.UserRoleViewer, multipartRequest(t, http.MethodPost, "/contracts", s.contractFields(t, []interface{}{}), map[string]string{"file1": "scan.pdf"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contracts/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReferences_Handlers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/implementators", map[string]string{"name": "ООО Ромашка", "tax_id": "12"}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tax_id"`)
	assert.Contains(t, rec.Body.String(), `"invalid_tax_id"`)

	rec = s.do(t, model.UserRoleManager, jsonRequest(t, http.MethodPost, "/implementators", map[string]string{"name": "ООО Ромашка", "tax_id": "631234567890"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/implementators", map[string]string{"name": "ООО Ромашка", "tax_id": s.fixtures.Implementator.TaxID}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/regions", map[string]string{"name": "Тверская область", "code": "69"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	region := decode[model.Region](t, rec)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/districts", map[string]interface{}{"name": "Заволжский", "region_id": region.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	district := decode[model.District](t, rec)

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/districts?region_id="+region.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []model.District `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, district.ID, list.Items[0].ID)

	rec = s.do(t, model.UserRoleAdmin, httptest.NewRequest(http.MethodDelete, "/regions/"+region.ID.String(), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, model.UserRoleAdmin, httptest.NewRequest(http.MethodDelete, "/districts/"+district.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/contract-types", map[string]string{"name": "Обслуживание"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	ct := decode[model.ContractType](t, rec)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/works", map[string]interface{}{"name": "Выезд", "contract_type_id": ct.ID, "price": -5}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, model.UserRoleAdmin, jsonRequest(t, http.MethodPost, "/works", map[string]interface{}{"name": "Выезд", "contract_type_id": ct.ID, "price": 1200}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, model.UserRoleViewer, httptest.NewRequest(http.MethodGet, "/contract-types", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Выезд")
}

func TestReferences_ImplementatorInUse(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, model.UserRoleManager, multipartRequest(t, http.MethodPost, "/contracts", s.contractFields(t, []interface{}{}), map[string]string{"file1": "scan.pdf"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, model.UserRoleAdmin, httptest.NewRequest(http.MethodDelete, "/implementators/"+s.fixtures.Implementator.ID.String(), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

}
