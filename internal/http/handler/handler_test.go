package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trustdocs/internal/intake"
	intakeMocks "trustdocs/internal/intake/mocks"
	"trustdocs/internal/model"
	"trustdocs/internal/repository"
	"trustdocs/internal/verification"
	verificationMocks "trustdocs/internal/verification/mocks"
)

type testApp struct {
	app    *fiber.App
	dbMock sqlmock.Sqlmock
	svc    *intakeMocks.MockService
	rec    *verificationMocks.MockReconciler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ta := &testApp{
		dbMock: dbMock,
		svc:    new(intakeMocks.MockService),
		rec:    new(verificationMocks.MockReconciler),
	}
	ta.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(ta.app, db, ta.svc, ta.rec)
	return ta
}

func withActor(req *http.Request, id, role string) *http.Request {
	req.Header.Set("X-Actor-ID", id)
	req.Header.Set("X-Actor-Role", role)
	return req
}

func multipartUpload(t *testing.T, categoryID, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("category_id", categoryID))
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)

	t.Run("healthy", func(t *testing.T) {
		ta.dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unhealthy", func(t *testing.T) {
		ta.dbMock.ExpectPing().WillReturnError(errors.New("db down"))

		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("liveness", func(t *testing.T) {
		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestUploadDocument(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ta := newTestApp(t)
		doc := &model.Document{ID: uuid.NewString(), OwnerID: "owner-1", CategoryID: "national_id_front"}
		ta.svc.On("Submit", mock.Anything, mock.MatchedBy(func(req intake.SubmitRequest) bool {
			return req.OwnerID == "owner-1" &&
				req.CategoryID == "national_id_front" &&
				req.OriginalFilename == "id.png" &&
				req.Actor.ID == "owner-1"
		})).Return(doc, nil).Once()

		body, ct := multipartUpload(t, "national_id_front", "id.png", []byte("bytes"))
		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", body), "owner-1", "contractor")
		req.Header.Set("Content-Type", ct)

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, doc.ID, got.ID)
		ta.svc.AssertExpectations(t)
	})

	t.Run("missing category_id", func(t *testing.T) {
		ta := newTestApp(t)
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, _ := w.CreateFormFile("file", "id.png")
		fw.Write([]byte("bytes"))
		w.Close()

		req := httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		ta := newTestApp(t)
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		w.WriteField("category_id", "national_id_front")
		w.Close()

		req := httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "FILE_REQUIRED", body.Error.Code)
	})

	t.Run("threat rejection maps to 422 with details", func(t *testing.T) {
		ta := newTestApp(t)
		ta.svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, &intake.Rejection{Reason: intake.ReasonThreatDetected, Threats: []string{"eicar_test_file"}}).Once()

		body, ct := multipartUpload(t, "national_id_front", "evil.png", []byte("bytes"))
		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", body), "owner-1", "contractor")
		req.Header.Set("Content-Type", ct)

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var payload errorPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "THREAT_DETECTED", payload.Error.Code)
		require.NotNil(t, payload.Error.Details)
		assert.Equal(t, []string{"eicar_test_file"}, payload.Error.Details.Threats)
	})

	t.Run("unknown category maps to 400", func(t *testing.T) {
		ta := newTestApp(t)
		ta.svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, &intake.Rejection{Reason: intake.ReasonUnknownCategory}).Once()

		body, ct := multipartUpload(t, "bogus", "id.png", []byte("bytes"))
		req := httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("infrastructure failure maps to 500", func(t *testing.T) {
		ta := newTestApp(t)
		ta.svc.On("Submit", mock.Anything, mock.Anything).
			Return(nil, errors.New("storage unreachable")).Once()

		body, ct := multipartUpload(t, "national_id_front", "id.png", []byte("bytes"))
		req := httptest.NewRequest(http.MethodPost, "/owners/owner-1/documents", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		// Internal details must not leak.
		raw, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(raw), "storage unreachable")
	})
}

func TestListDocuments(t *testing.T) {
	ta := newTestApp(t)

	t.Run("success with filters", func(t *testing.T) {
		res := &repository.PageResult[model.Document]{
			Items: []model.Document{{ID: uuid.NewString(), OwnerID: "owner-1"}},
			Total: 1,
		}
		ta.svc.On("List", mock.Anything, mock.Anything, "owner-1",
			repository.DocumentFilter{CategoryID: "national_id_front", Status: model.DocumentUploaded},
			repository.PageQuery{Limit: 5, Offset: 10}).Return(res, nil).Once()

		req := withActor(httptest.NewRequest(http.MethodGet,
			"/owners/owner-1/documents?category_id=national_id_front&status=uploaded&limit=5&offset=10", nil),
			"owner-1", "contractor")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		ta.svc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/owners/owner-1/documents?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("access denied maps to 403", func(t *testing.T) {
		ta.svc.On("List", mock.Anything, mock.Anything, "owner-1", mock.Anything, mock.Anything).
			Return(nil, &intake.Rejection{Reason: intake.ReasonAccessDenied}).Once()

		req := withActor(httptest.NewRequest(http.MethodGet, "/owners/owner-1/documents", nil), "intruder", "")
		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestGetDocument(t *testing.T) {
	ta := newTestApp(t)
	id := uuid.NewString()

	t.Run("found", func(t *testing.T) {
		ta.svc.On("Get", mock.Anything, mock.Anything, id).
			Return(&model.Document{ID: id, OwnerID: "owner-1"}, nil).Once()

		req := withActor(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil), "owner-1", "")
		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		ta.svc.On("Get", mock.Anything, mock.Anything, id).
			Return(nil, intake.ErrNotFound).Once()

		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("raw ErrNoRows also maps to 404", func(t *testing.T) {
		ta.svc.On("Get", mock.Anything, mock.Anything, id).
			Return(nil, sql.ErrNoRows).Once()

		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadDocument(t *testing.T) {
	ta := newTestApp(t)
	id := uuid.NewString()

	ta.svc.On("Download", mock.Anything, mock.Anything, id).
		Return(&intake.Download{
			Document: model.Document{ID: id, MimeType: "image/png", OriginalFilename: "id.png"},
			Content:  []byte("plaintext bytes"),
		}, nil).Once()

	req := withActor(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil), "owner-1", "")
	resp, _ := ta.app.Test(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "id.png")

	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "plaintext bytes", string(raw))
}

func TestDeleteDocument(t *testing.T) {
	ta := newTestApp(t)
	id := uuid.NewString()

	t.Run("no content on success", func(t *testing.T) {
		ta.svc.On("Delete", mock.Anything, mock.Anything, id).Return(nil).Once()

		req := withActor(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil), "owner-1", "")
		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		ta.svc.On("Delete", mock.Anything, mock.Anything, id).Return(intake.ErrNotFound).Once()

		resp, _ := ta.app.Test(httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestVerificationStatus(t *testing.T) {
	ta := newTestApp(t)

	ta.rec.On("Status", mock.Anything, "owner-1").
		Return(&model.VerificationStatus{OwnerID: "owner-1", Status: model.TrustPending}, nil).Once()

	resp, _ := ta.app.Test(httptest.NewRequest(http.MethodGet, "/owners/owner-1/verification", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vs model.VerificationStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vs))
	assert.Equal(t, model.TrustPending, vs.Status)
}

func TestAdjudicate(t *testing.T) {
	ta := newTestApp(t)

	t.Run("approve", func(t *testing.T) {
		ta.rec.On("Adjudicate", mock.Anything, "owner-1", model.DecisionApprove, "looks good").
			Return(&model.VerificationStatus{OwnerID: "owner-1", Status: model.TrustVerified}, nil).Once()

		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/verification/adjudicate",
			strings.NewReader(`{"decision":"approve","notes":"looks good"}`)), "reviewer-1", "admin")
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not pending maps to 409", func(t *testing.T) {
		ta.rec.On("Adjudicate", mock.Anything, "owner-1", model.DecisionApprove, "").
			Return(nil, verification.ErrInvalidTransition).Once()

		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/verification/adjudicate",
			strings.NewReader(`{"decision":"approve"}`)), "reviewer-1", "admin")
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown decision maps to 400", func(t *testing.T) {
		ta.rec.On("Adjudicate", mock.Anything, "owner-1", model.AdjudicationDecision("escalate"), "").
			Return(nil, verification.ErrUnknownDecision).Once()

		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/verification/adjudicate",
			strings.NewReader(`{"decision":"escalate"}`)), "reviewer-1", "admin")
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("owner cannot adjudicate themselves", func(t *testing.T) {
		ta := newTestApp(t)
		req := withActor(httptest.NewRequest(http.MethodPost, "/owners/owner-1/verification/adjudicate",
			strings.NewReader(`{"decision":"approve"}`)), "owner-1", "contractor")
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var payload errorPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "ACCESS_DENIED", payload.Error.Code)
		ta.rec.AssertNotCalled(t, "Adjudicate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous caller gets 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/owners/owner-1/verification/adjudicate",
			strings.NewReader(`{"decision":"approve"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestProfileSignal(t *testing.T) {
	ta := newTestApp(t)

	t.Run("accepted", func(t *testing.T) {
		ta.rec.On("SyncProfile", mock.Anything, "owner-1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/signals/profile",
			strings.NewReader(`{"owner_id":"owner-1"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		ta.rec.AssertExpectations(t)
	})

	t.Run("missing owner_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/signals/profile", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := ta.app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
