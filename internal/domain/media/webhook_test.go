package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"mediahub/internal/middleware"
)

type recordingActivator struct {
	calls []string
}

func (r *recordingActivator) ActivatePending(ctx context.Context, mediaID string) (int, error) {
	r.calls = append(r.calls, mediaID)
	return 1, nil
}

func newWebhookRouter(t *testing.T, svc *Service, activator Activator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	internal := r.Group("/internal")
	internal.Use(middleware.ProcessorTokenAuth("processor-secret"))
	RegisterWebhookRoutes(internal, NewWebhookHandler(svc, activator))
	return r
}

func postCallback(r *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/media/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_RejectsBadCredential(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	r := newWebhookRouter(t, svc, nil)

	w := postCallback(r, "", `{"media_id":"x","status":"ready"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postCallback(r, "wrong-token", `{"media_id":"x","status":"ready"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_TokenNotConfigured(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	internal := r.Group("/internal")
	internal.Use(middleware.ProcessorTokenAuth(""))
	RegisterWebhookRoutes(internal, NewWebhookHandler(svc, nil))

	w := postCallback(r, "anything", `{"media_id":"x","status":"ready"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_RequiredFields(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	r := newWebhookRouter(t, svc, nil)

	w := postCallback(r, "processor-secret", `{"status":"ready"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCallback(r, "processor-secret", `{"media_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_UnknownID(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	r := newWebhookRouter(t, svc, nil)

	w := postCallback(r, "processor-secret", `{"media_id":"no-such","status":"ready"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhook_ReadyOutcome_ActivatesPending(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	activator := &recordingActivator{}
	r := newWebhookRouter(t, svc, activator)

	asset := submitPNG(t, svc)
	body := `{"media_id":"` + asset.ID + `","status":"ready","thumbnail_path":"thumbs/a.png","metadata":{"image":{"width":640,"height":480}}}`

	w := postCallback(r, "processor-secret", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Equal(t, []string{asset.ID}, activator.calls)

	got, err := svc.GetStatus(context.Background(), asset.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)

	// Safe retry: the identical payload is accepted again.
	w = postCallback(r, "processor-secret", body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_ConflictingOutcome(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	r := newWebhookRouter(t, svc, nil)

	asset := submitPNG(t, svc)
	w := postCallback(r, "processor-secret", `{"media_id":"`+asset.ID+`","status":"failed","error":"corrupt file"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postCallback(r, "processor-secret", `{"media_id":"`+asset.ID+`","status":"ready"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
