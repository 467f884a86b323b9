package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/submission-gateway/internal/config"
	"github.com/kirillkom/submission-gateway/internal/core/domain"
	"github.com/kirillkom/submission-gateway/internal/core/ports"
	"github.com/kirillkom/submission-gateway/internal/observability/metrics"
)

const serviceName = "submission-gateway"

type Router struct {
	cfg       config.Config
	resolver  ports.AccountResolver
	device    ports.DeviceAuthenticator
	lifecycle ports.SubmissionLifecycle
	metrics   *metrics.HTTPServerMetrics
}

// NewRouter binds the authentication resolver and the submission lifecycle to
// the /v1 surface. metrics may be nil (tests).
func NewRouter(
	cfg config.Config,
	resolver ports.AccountResolver,
	device ports.DeviceAuthenticator,
	lifecycle ports.SubmissionLifecycle,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		resolver:  resolver,
		device:    device,
		lifecycle: lifecycle,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/submission/auth/lsri", rt.authenticateLSRI)
	mux.HandleFunc("POST /v1/submission/initiate", rt.initiateSubmission)
	mux.HandleFunc("PUT /v1/submission/{submissionId}/uploaded", rt.markSubmissionUploaded)
	mux.HandleFunc("GET /v1/submission/{submissionId}/status", rt.getSubmissionStatus)
	mux.HandleFunc("PUT /v1/submission/{submissionId}/status/{status}", rt.markSubmissionStatus)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, defaultBackpressureWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticateLSRI drives the device-authorization flow: it blocks while the
// user approves the device code out-of-band and returns the issued token.
func (rt *Router) authenticateLSRI(w http.ResponseWriter, r *http.Request) {
	deviceCode := strings.TrimSpace(r.URL.Query().Get("deviceCode"))
	expiresIn, err := strconv.Atoi(r.URL.Query().Get("expiresIn"))
	if deviceCode == "" || err != nil || expiresIn <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deviceCode and expiresIn are required"})
		return
	}

	token, err := rt.device.PollForToken(r.Context(), deviceCode, expiresIn)
	if err != nil {
		rt.recordDeviceGrant("denied")
		writeError(w, err)
		return
	}
	rt.recordDeviceGrant("approved")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (rt *Router) initiateSubmission(w http.ResponseWriter, r *http.Request) {
	account, ok := rt.authenticate(w, r)
	if !ok {
		return
	}

	submission, err := rt.lifecycle.Initiate(r.Context(), *account)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordTransition(string(domain.StatusInitiated))
	writeJSON(w, http.StatusOK, toSubmissionView(submission))
}

func (rt *Router) markSubmissionUploaded(w http.ResponseWriter, r *http.Request) {
	account, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	submissionID := r.PathValue("submissionId")
	if !rt.authorize(w, r, *account, submissionID) {
		return
	}

	submission, err := rt.lifecycle.MarkUploaded(r.Context(), submissionID)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordTransition(string(domain.StatusUploaded))
	writeJSON(w, http.StatusOK, toSubmissionView(submission))
}

func (rt *Router) getSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	submissionID := r.PathValue("submissionId")
	if !rt.authorize(w, r, *account, submissionID) {
		return
	}

	status, err := rt.lifecycle.GetStatus(r.Context(), submissionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// markSubmissionStatus is the administrative override. It is guarded by the
// admin credential, not by ownership; without a configured credential the
// endpoint stays closed.
func (rt *Router) markSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	if !rt.adminAuthorized(r) {
		writeUnauthorized(w)
		return
	}
	submissionID := r.PathValue("submissionId")
	status := domain.SubmissionStatus(r.PathValue("status"))

	submission, err := rt.lifecycle.MarkStatus(r.Context(), submissionID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordTransition(string(status))
	writeJSON(w, http.StatusOK, toSubmissionView(submission))
}

// authenticate resolves the bearer credential on the request. On failure it
// answers 401 and reports false.
func (rt *Router) authenticate(w http.ResponseWriter, r *http.Request) (*domain.SubmissionAccount, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	account, err := rt.resolver.Resolve(r.Context(), token)
	if err != nil || account == nil {
		rt.recordAuthAttempt("unauthorized")
		writeUnauthorized(w)
		return nil, false
	}
	rt.recordAuthAttempt("resolved")
	return account, true
}

// authorize runs the ownership gate. A failed check answers exactly like a
// missing submission so callers cannot probe for foreign identifiers.
func (rt *Router) authorize(w http.ResponseWriter, r *http.Request, account domain.SubmissionAccount, submissionID string) bool {
	allowed, err := rt.lifecycle.CheckAccess(r.Context(), account, submissionID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if !allowed {
		writeUnauthorized(w)
		return false
	}
	return true
}

func (rt *Router) adminAuthorized(r *http.Request) bool {
	if rt.cfg.AdminAPIKey == "" {
		return false
	}
	return bearerToken(r.Header.Get("Authorization")) == rt.cfg.AdminAPIKey
}

func bearerToken(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
}

func (rt *Router) recordAuthAttempt(outcome string) {
	if rt.metrics != nil {
		rt.metrics.RecordAuthAttempt(serviceName, outcome)
	}
}

func (rt *Router) recordDeviceGrant(result string) {
	if rt.metrics != nil {
		rt.metrics.RecordDeviceGrant(serviceName, result)
	}
}

func (rt *Router) recordTransition(status string) {
	if rt.metrics != nil {
		rt.metrics.RecordTransition(serviceName, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusUnauthorized {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
