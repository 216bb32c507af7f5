package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository/memory"
	"github.com/noah-isme/aulao-api/internal/service"
	"github.com/noah-isme/aulao-api/pkg/signedlink"
)

const (
	testJWTSecret      = "router-secret"
	testCallbackSecret = "callback-secret"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func buildRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	memory.Seed(store, time.Now().UTC())
	events := memory.NewClassEventRepository(store)
	enrollments := memory.NewEnrollmentRepository(store)
	catalogRepo := memory.NewCatalogRepository(store)

	accessSvc := service.NewAccessService(service.AccessServiceParams{
		Events:      events,
		Enrollments: enrollments,
		Signer:      signedlink.NewSigner("join-secret", time.Minute),
		JoinPath:    "/api/v1/join/",
	})
	catalogSvc := service.NewCatalogService(service.CatalogServiceParams{Catalog: catalogRepo, Events: events, Enrollments: enrollments})
	purchaseSvc := service.NewPurchaseService(service.PurchaseServiceParams{
		Purchases:   memory.NewPurchaseRepository(store),
		Payments:    memory.NewPaymentRepository(store),
		Enrollments: memory.NewEnrollmentRepository(store),
		Events:      events,
	})
	classSvc := service.NewClassEventService(service.ClassEventServiceParams{Events: events, Catalog: catalogRepo})
	reportingSvc := service.NewReportingService(service.ReportingServiceParams{
		Reports: memory.NewReportRepository(store),
		Buyers:  enrollments,
	})

	router := gin.New()
	Register(router.Group("/api/v1"), Handlers{
		ClassEvents: NewClassEventHandler(accessSvc, catalogSvc, purchaseSvc),
		Agenda:      NewAgendaHandler(service.NewAgendaService(enrollments)),
		Catalog:     NewCatalogHandler(catalogSvc),
		Teacher:     NewTeacherHandler(classSvc, reportingSvc),
		Payments:    NewPaymentHandler(purchaseSvc),
	}, RouteConfig{
		JWTSecret:             testJWTSecret,
		PaymentCallbackSecret: testCallbackSecret,
		Viewer:                models.Viewer{UserID: "u-student-ana", StudentProfileID: "sp-ana"},
	})
	return router
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func teacherToken(t *testing.T, teacherProfileID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.ViewerClaims{
		UserID:           "u-" + teacherProfileID,
		Role:             models.RoleTeacher,
		TeacherProfileID: teacherProfileID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func callbackToken(t *testing.T, secret, paymentID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   paymentID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestStudentRoutesIntegration(t *testing.T) {
	router := buildRouter(t)

	t.Run("access state of live class", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo/access", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"CAN_ENTER"`)
	})

	t.Run("detail honors reference time", func(t *testing.T) {
		at := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo?at="+at, nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"accessState":"WAITING_RELEASE"`)
		require.NotContains(t, resp.Body.String(), `"meetingUrl":"http`)

		req, _ = http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo?at=yesterday", nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("access state before start", func(t *testing.T) {
		at := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo/can-enter?at="+at, nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"canEnter":false`)
	})

	t.Run("invalid reference time", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo/access?at=yesterday", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("duplicate purchase points at existing enrollment", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/class-events/ce-insper-calculo/purchase", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		envelope := decode(t, resp)
		assert.Equal(t, "DUPLICATE_ENROLLMENT", envelope.Error["code"])
		assert.Equal(t, "enr-ana-insper-calculo", envelope.Meta["enrollmentId"])
	})

	t.Run("purchase then availability", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/class-events/ce-insper-estatistica/purchase", bytes.NewBufferString(`{"provider":"MOCK"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"PAID"`)

		req, _ = http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-estatistica/availability", nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"soldSeats":20`)
	})

	t.Run("sold out purchase", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/class-events/ce-fgv-redacao/purchase", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "EVENT_NOT_PURCHASABLE")
	})

	t.Run("unknown provider", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/class-events/ce-mobile-matematica/purchase", bytes.NewBufferString(`{"provider":"PIX"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("join link redirects to meeting", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-insper-calculo/join", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		var link struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &link))
		require.True(t, strings.HasPrefix(link.URL, "/api/v1/join/"))

		req, _ = http.NewRequest(http.MethodGet, link.URL, nil)
		resp = performRequest(router, req)
		require.Equal(t, http.StatusFound, resp.Code)
		require.Equal(t, "https://meet.docens.app/calculo-intensivo", resp.Header().Get("Location"))
	})

	t.Run("join link denied before release", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-fgv-argumentacao/join", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("agenda", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/me/agenda", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"phaseCounts"`)
	})

	t.Run("draft hidden from catalog", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/class-events/ce-fgv-draft-casos", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestCatalogRoutesIntegration(t *testing.T) {
	router := buildRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/institutions", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var institutions []models.Institution
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &institutions))
	assert.Len(t, institutions, 6)

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/institutions/ins-fgv/subjects/sub-direito/teachers", nil)
	resp = performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Luiza Costa")

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/institutions/ins-missing", nil)
	resp = performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTeacherRoutesIntegration(t *testing.T) {
	router := buildRouter(t)
	luiza := teacherToken(t, "tp-luiza")
	rafael := teacherToken(t, "tp-rafael")

	t.Run("students cannot reach teacher routes", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/teacher/dashboard", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/teacher/dashboard", nil)
		req.Header.Set("Authorization", rafael)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, "MISS", resp.Header().Get("X-Cache"))
		require.Contains(t, resp.Body.String(), `"totalRevenueSucceededCents":14900`)
	})

	t.Run("publish draft", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/teacher/class-events/ce-fgv-draft-casos/publish", nil)
		req.Header.Set("Authorization", luiza)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"publicationStatus":"PUBLISHED"`)

		resp = performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("create validation", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/teacher/class-events", bytes.NewBufferString(`{"title":"x","capacity":0}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", luiza)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("release before start", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/teacher/class-events/ce-fgv-argumentacao/release", nil)
		req.Header.Set("Authorization", luiza)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "MEETING_NOT_RELEASABLE")
	})

	t.Run("buyers of another teacher", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/teacher/class-events/ce-insper-calculo/buyers", nil)
		req.Header.Set("Authorization", luiza)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("export buyers", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/teacher/class-events/ce-insper-calculo/buyers/export?format=csv", nil)
		req.Header.Set("Authorization", rafael)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Header().Get("Content-Disposition"), "compradores-ce-insper-calculo.csv")
		require.Contains(t, resp.Body.String(), "Ana Martins")
	})

	t.Run("invalid status filter", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/teacher/class-events?status=archived", nil)
		req.Header.Set("Authorization", rafael)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestPaymentRoutesIntegration(t *testing.T) {
	router := buildRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/payments/pay-ana-mobile-fisica/fail", nil)
	req.Header.Set("Authorization", callbackToken(t, testCallbackSecret, "pay-ana-mobile-fisica"))
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"status":"CANCELLED"`)

	resp = performRequest(router, req)
	require.Equal(t, http.StatusConflict, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/payments/pay-ana-mobile-fisica", nil)
	resp = performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"status":"FAILED"`)

	req, _ = http.NewRequest(http.MethodPost, "/api/v1/payments/missing/confirm", nil)
	req.Header.Set("Authorization", callbackToken(t, testCallbackSecret, "missing"))
	resp = performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPaymentCallbacksRequireProviderSignature(t *testing.T) {
	router := buildRouter(t)

	purchase, _ := http.NewRequest(http.MethodPost, "/api/v1/class-events/ce-insper-estatistica/purchase", strings.NewReader(`{"provider":"STRIPE"}`))
	purchase.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, purchase)
	require.Equal(t, http.StatusCreated, resp.Code)

	var checkout struct {
		Payment struct {
			ID string `json:"id"`
		} `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &checkout))
	paymentID := checkout.Payment.ID
	require.NotEmpty(t, paymentID)
	confirmPath := "/api/v1/payments/" + paymentID + "/confirm"

	cases := []struct {
		name   string
		header string
	}{
		{name: "unsigned", header: ""},
		{name: "viewer token", header: teacherToken(t, "tp-rafael")},
		{name: "wrong secret", header: callbackToken(t, "guessed", paymentID)},
		{name: "other payment", header: callbackToken(t, testCallbackSecret, "pay-ana-mobile-fisica")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, confirmPath, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := performRequest(router, req)
			require.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/payments/"+paymentID, nil)
	resp = performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"status":"PENDING"`)

	req, _ = http.NewRequest(http.MethodPost, confirmPath, nil)
	req.Header.Set("Authorization", callbackToken(t, testCallbackSecret, paymentID))
	resp = performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"status":"SUCCEEDED"`)
}
