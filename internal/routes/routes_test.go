package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicheck-server/internal/checkin"
	"medicheck-server/internal/clock"
	"medicheck-server/internal/config"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/models"
	"medicheck-server/internal/testutil"
)

var sgt = time.FixedZone("SGT", 8*60*60)

// Changi General Hospital.
const changiLat, changiLng = 1.3404, 103.9492

type stubGenerator struct{ reply string }

func (s stubGenerator) Generate(context.Context, string, string) (string, error) {
	return s.reply, nil
}

type envelope struct {
	Status int             `json:"status"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	reg    *prometheus.Registry
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Environment:               "development",
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
		TimeZone:                  sgt,
		RepositoryTimeout:         5 * time.Second,
	}
	reg := prometheus.NewRegistry()
	router := gin.New()
	SetupRoutes(router, Dependencies{
		DB:        testutil.NewDB(t),
		Config:    cfg,
		Logger:    logger.Discard(),
		Clock:     clock.Fixed(time.Date(2026, 10, 18, 10, 0, 0, 0, sgt)),
		Generator: stubGenerator{reply: "Please bring your ID."},
		Registry:  reg,
	})
	return &api{t: t, router: router, reg: reg}
}

func (a *api) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// signUp registers a user and logs in, returning the access token.
func (a *api) signUp(username string) string {
	a.t.Helper()
	w, _ := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Tan Ah Kow", "username": username, "email": username + "@example.com", "password": "s3cret-pass",
	})
	require.Equal(a.t, http.StatusCreated, w.Code)

	w, env := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"identifier": username, "password": "s3cret-pass",
	})
	require.Equal(a.t, http.StatusOK, w.Code)
	return decode[tokens](a.t, env.Data).AccessToken
}

func (a *api) book(token, hospital, date, slot string) models.Appointment {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/v1/appointments", token, map[string]string{
		"hospital": hospital, "type": "General Checkup", "doctor": "Dr. Smith",
		"date": date, "timeSlot": slot, "patientName": "Tan Ah Kow",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, env.Error)
	return decode[models.Appointment](a.t, env.Data)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Tan Ah Kow", "username": "ahkow", "email": "AhKow@Example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[models.UserSanitized](t, env.Data)
	assert.Equal(t, "ahkow@example.com", user.Email)

	w, _ = a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Other", "username": "other", "email": "ahkow@example.com", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Other", "username": "ahkow", "email": "other@example.com", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "ahkow", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "AHKOW@example.com", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode[tokens](t, env.Data)

	w, env = a.do(http.MethodGet, "/api/v1/auth/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ahkow", decode[models.UserSanitized](t, env.Data).Username)

	w, env = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decode[tokens](t, env.Data)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	w, _ = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a used refresh token is revoked")

	w, _ = a.do(http.MethodPost, "/api/v1/auth/logout", rotated.AccessToken, map[string]string{"refreshToken": rotated.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")
	a.signUp("siewling")

	w, _ := a.do(http.MethodPut, "/api/v1/auth/profile", token, map[string]string{"username": "siewling"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := a.do(http.MethodPut, "/api/v1/auth/profile", token, map[string]string{"name": "Tan Ah Kow Jr", "username": "ahkowjr"})
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[models.UserSanitized](t, env.Data)
	assert.Equal(t, "Tan Ah Kow Jr", user.Name)
	assert.Equal(t, "ahkowjr", user.Username)
}

func TestChangePassword(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")

	w, _ := a.do(http.MethodPut, "/api/v1/account/password", token, map[string]string{"currentPassword": "nope-nope", "newPassword": "n3w-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(http.MethodPut, "/api/v1/account/password", token, map[string]string{"currentPassword": "s3cret-pass", "newPassword": "s3cret-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(http.MethodPut, "/api/v1/account/password", token, map[string]string{"currentPassword": "s3cret-pass", "newPassword": "n3w-password"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "ahkow", "password": "n3w-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogAndHospitals(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cat := decode[map[string][]string](t, env.Data)
	assert.Len(t, cat["timeSlots"], 18)

	w, env = a.do(http.MethodGet, "/api/v1/hospitals", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, env.Data), 7)
}

func TestAppointmentLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")
	other := a.signUp("siewling")

	appt := a.book(token, "Changi General Hospital", "2026-10-20", "09:00")
	assert.Equal(t, models.StatusUpcoming, appt.Status)

	w, _ := a.do(http.MethodPost, "/api/v1/appointments", token, map[string]string{
		"hospital": "Nowhere", "type": "General Checkup", "doctor": "Dr. Smith",
		"date": "2026-10-20", "timeSlot": "09:00", "patientName": "Tan Ah Kow",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env := a.do(http.MethodGet, "/api/v1/appointments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Appointment](t, env.Data), 1)

	w, _ = a.do(http.MethodGet, "/api/v1/appointments/"+appt.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.do(http.MethodPatch, "/api/v1/appointments/"+appt.ID, token, map[string]string{"doctor": "Dr. Lee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dr. Lee", decode[models.Appointment](t, env.Data).Doctor)

	w, _ = a.do(http.MethodDelete, "/api/v1/appointments/"+appt.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/v1/appointments/"+appt.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckInFlow(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")
	other := a.signUp("siewling")

	appt := a.book(token, "Changi General Hospital", "2026-10-18", "14:30")
	tomorrow := a.book(token, "Changi General Hospital", "2026-10-19", "09:00")

	w, env := a.do(http.MethodGet, "/api/v1/appointments/today?hospital=Changi%20General%20Hospital", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	today := decode[[]models.Appointment](t, env.Data)
	require.Len(t, today, 1)
	assert.Equal(t, appt.ID, today[0].ID)

	w, _ = a.do(http.MethodGet, "/api/v1/appointments/today", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 1 km north of the hospital.
	far := changiLat + 1000/111195.0
	w, env = a.do(http.MethodPost, "/api/v1/check-in/verify", token, map[string]interface{}{
		"hospital": "Changi General Hospital", "latitude": far, "longitude": changiLng,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "outside_geofence", env.Code)
	assert.False(t, decode[checkin.Presence](t, env.Data).WithinGeofence)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/verify", token, map[string]interface{}{
		"hospital": "Changi General Hospital", "latitude": far, "longitude": changiLng, "override": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[checkin.Presence](t, env.Data).Overridden)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/verify", token, map[string]interface{}{
		"hospital": "Changi General Hospital", "latitude": changiLat, "longitude": changiLng,
	})
	require.Equal(t, http.StatusOK, w.Code)
	presence := decode[checkin.Presence](t, env.Data)
	assert.True(t, presence.WithinGeofence)
	require.Len(t, presence.Appointments, 1)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/verify", token, map[string]interface{}{
		"hospital": "hospital_checkin_1234", "latitude": changiLat, "longitude": changiLng,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_hospital", env.Code)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/verify", token, map[string]interface{}{"hospital": "Changi General Hospital"})
	assert.Equal(t, http.StatusBadRequest, w.Code, env.Error)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/"+appt.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", env.Code)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/"+appt.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	checked := decode[models.Appointment](t, env.Data)
	assert.Equal(t, models.StatusCompleted, checked.Status)
	require.NotNil(t, checked.CompletionTime)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/"+appt.ID, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_checked_in", env.Code)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/missing-id", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Code)

	w, env = a.do(http.MethodPatch, "/api/v1/appointments/"+appt.ID, token, map[string]string{"doctor": "Dr. Lee"})
	assert.Equal(t, http.StatusConflict, w.Code, "completed appointments cannot be edited")

	w, env = a.do(http.MethodPost, "/api/v1/check-in/batch", token, map[string][]string{
		"appointmentIds": {tomorrow.ID, "missing-id", appt.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	batch := decode[checkin.BatchResult](t, env.Data)
	assert.Equal(t, 1, batch.Successful)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, models.StatusCompleted, batch.Items[0].Status)
	refreshed := map[string]models.AppointmentStatus{}
	for _, r := range batch.Appointments {
		refreshed[r.ID] = r.Status
	}
	assert.Equal(t, map[string]models.AppointmentStatus{
		tomorrow.ID: models.StatusCompleted,
		appt.ID:     models.StatusCompleted,
	}, refreshed)

	w, env = a.do(http.MethodPost, "/api/v1/check-in/batch", token, map[string][]string{"appointmentIds": {}})
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[checkin.BatchResult](t, env.Data)
	assert.Zero(t, empty.Successful+empty.Failed)

	w, _ = a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `medicheck_checkin_total{outcome="completed"}`)
	assert.Contains(t, w.Body.String(), `medicheck_checkin_presence_total{result="override"} 1`)
}

func TestAssistantChat(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")

	w, env := a.do(http.MethodPost, "/api/v1/assistant/chat", token, map[string]string{"message": "What should I bring?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Please bring your ID.", decode[map[string]string](t, env.Data)["reply"])

	w, _ = a.do(http.MethodPost, "/api/v1/assistant/chat", token, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, Dependencies{
		DB:     testutil.NewDB(t),
		Config: &config.Config{JWTSecret: "s", JWTRefreshSecret: "r", JWTExpirationMinutes: 5, JWTRefreshExpirationHours: 1, TimeZone: sgt},
		Logger: logger.Discard(),
	})
	a := &api{t: t, router: router}
	token := a.signUp("ahkow")

	w, _ := a.do(http.MethodPost, "/api/v1/assistant/chat", token, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAccount(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("ahkow")
	a.book(token, "Changi General Hospital", "2026-10-20", "09:00")

	w, _ := a.do(http.MethodDelete, "/api/v1/account", token, map[string]string{"password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(http.MethodDelete, "/api/v1/account", token, map[string]string{"password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(http.MethodGet, "/api/v1/auth/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, env := a.do(http.MethodGet, "/api/v1/appointments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Appointment](t, env.Data))

	w, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "ahkow", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
