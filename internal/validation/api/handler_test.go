package validation_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-gatekeeper/internal/auth"
	gates "ms-gatekeeper/internal/gates/service"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	"ms-gatekeeper/internal/resolver"
	"ms-gatekeeper/internal/utils"
	validation "ms-gatekeeper/internal/validation/service"
)

type stubResolver struct {
	pass *models.Pass
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, code string) (*models.Pass, error) {
	return s.pass, s.err
}

type stubAccess struct {
	decision gates.Decision
}

func (s *stubAccess) CheckAccess(ctx context.Context, pass *models.Pass, gateID string) (gates.Decision, error) {
	return s.decision, nil
}

type stubPasses struct {
	won bool
	err error
}

func (s *stubPasses) MarkUsed(ctx context.Context, passID string) (bool, error) {
	return s.won, s.err
}

type memAudit struct {
	records []models.ValidationRecord
}

func (m *memAudit) CreateValidationRecord(ctx context.Context, record models.ValidationRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *memAudit) CreateGateValidationRecord(ctx context.Context, record models.GateValidationRecord) error {
	return nil
}

func testPass() *models.Pass {
	return &models.Pass{
		ID: "pass-1", EventID: "event-1", CategoryID: "cat-judge",
		PassCode: "PASS-100", ParticipantName: "Dana Reyes",
	}
}

func allowed() gates.Decision {
	return gates.Decision{Allowed: true, Code: gates.CodeAllowed, Reason: "Gate access allowed"}
}

func newHandler(res *stubResolver, access *stubAccess, passes *stubPasses, audit *memAudit) *Handler {
	svc := validation.NewValidationService(res, access, passes, audit, nil, nil, nil)
	return &Handler{ValidationService: svc, Logger: &logger.Logger{}}
}

func doValidate(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(body))
	req = req.WithContext(auth.WithValidatorID(req.Context(), "validator-1"))
	rec := httptest.NewRecorder()
	h.ValidatePass(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	var resp utils.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestValidatePassApproved(t *testing.T) {
	audit := &memAudit{}
	h := newHandler(&stubResolver{pass: testPass()}, &stubAccess{decision: allowed()}, &stubPasses{won: true}, audit)

	rec := doValidate(h, `{"code":"PASS-100","gate_id":"gate-main"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	require.Len(t, audit.records, 1)
	assert.Equal(t, models.OutcomeSuccess, audit.records[0].Outcome)
	assert.Equal(t, "validator-1", audit.records[0].ValidatorID)
}

func TestValidatePassDuplicateConflict(t *testing.T) {
	h := newHandler(&stubResolver{pass: testPass()}, &stubAccess{decision: allowed()}, &stubPasses{won: false}, &memAudit{})

	rec := doValidate(h, `{"code":"PASS-100","gate_id":"gate-main"}`)

	// Duplicates get their own status so the scanner can show a distinct
	// warning.
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestValidatePassDeniedForbidden(t *testing.T) {
	denied := gates.Decision{Code: gates.CodeAccessDenied, Reason: "Access denied for this pass category at this gate"}
	h := newHandler(&stubResolver{pass: testPass()}, &stubAccess{decision: denied}, &stubPasses{won: true}, &memAudit{})

	rec := doValidate(h, `{"code":"PASS-100","gate_id":"gate-vip"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestValidatePassExpiredForbidden(t *testing.T) {
	pass := testPass()
	expiry := time.Now().Add(-time.Hour)
	pass.ExpiresAt = &expiry
	h := newHandler(&stubResolver{pass: pass}, &stubAccess{decision: allowed()}, &stubPasses{won: true}, &memAudit{})

	rec := doValidate(h, `{"code":"PASS-100","gate_id":"gate-main"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidatePassUnknownCode(t *testing.T) {
	h := newHandler(&stubResolver{err: resolver.ErrNotFound}, &stubAccess{decision: allowed()}, &stubPasses{won: true}, &memAudit{})

	rec := doValidate(h, `{"code":"NOT-A-CODE","gate_id":"gate-main"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidatePassStoreUnavailable(t *testing.T) {
	audit := &memAudit{}
	h := newHandler(&stubResolver{pass: testPass()}, &stubAccess{decision: allowed()}, &stubPasses{err: errors.New("connection refused")}, audit)

	rec := doValidate(h, `{"code":"PASS-100","gate_id":"gate-main"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, audit.records, "an aborted attempt records no outcome")
}

func TestValidatePassBadRequest(t *testing.T) {
	h := newHandler(&stubResolver{pass: testPass()}, &stubAccess{decision: allowed()}, &stubPasses{won: true}, &memAudit{})

	for name, body := range map[string]string{
		"malformed json": `{"code":`,
		"missing code":   `{"gate_id":"gate-main"}`,
		"blank code":     `{"code":"   ","gate_id":"gate-main"}`,
		"missing gate":   `{"code":"PASS-100"}`,
	} {
		rec := doValidate(h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}
