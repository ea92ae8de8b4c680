package web

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"cattube/internal/models"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("https://cdn.example/static")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRender_VideoList(t *testing.T) {
	r := newTestRenderer(t)
	v := &models.Video{ID: uuid.New(), Title: "Cat <3 box", UploadedAt: time.Date(2024, 3, 9, 17, 5, 0, 0, time.UTC)}

	rr := httptest.NewRecorder()
	err := r.Render(rr, http.StatusOK, PageVideoList, map[string]interface{}{
		"Username": "whiskers",
		"Videos":   []*models.Video{v},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "Cat &lt;3 box") {
		t.Errorf("title not escaped in list: %s", body)
	}
	if !strings.Contains(body, "/watch/"+v.ID.String()) {
		t.Errorf("missing watch link")
	}
	if !strings.Contains(body, `href="https://cdn.example/static/css/site.css"`) {
		t.Errorf("static url not applied")
	}
	if !strings.Contains(body, "/delete-all") {
		t.Errorf("logged in user should see the delete form")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestRender_UploadFormEmbedsAuthorization(t *testing.T) {
	r := newTestRenderer(t)
	params := `{"auth":{"key":"k","expires":"2024/03/09 18:05:01+00:00"},"template_id":"t","notify_url":"https://h/notification"}`

	rr := httptest.NewRecorder()
	err := r.Render(rr, http.StatusOK, PageVideoForm, map[string]interface{}{
		"Username":  "whiskers",
		"Params":    params,
		"Signature": "sha384:abc",
		"Form":      models.CreateVideoRequest{},
		"Errors":    map[string][]string{"title": {"This field is required."}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `signature: "sha384:abc"`) {
		t.Errorf("signature not embedded as a JS string: %s", body)
	}
	if !strings.Contains(body, `params: "`) || !strings.Contains(body, "template_id") {
		t.Errorf("params not embedded as a JS string: %s", body)
	}
	if !strings.Contains(body, "This field is required.") {
		t.Errorf("form errors not rendered")
	}
}

func TestRender_DetailPolling(t *testing.T) {
	r := newTestRenderer(t)
	v := &models.Video{ID: uuid.New(), Title: "Pending"}

	rr := httptest.NewRecorder()
	if err := r.Render(rr, http.StatusOK, PageVideoDetail, map[string]interface{}{"Video": v}); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "js/watch.js") || !strings.Contains(body, "/videos/"+v.ID.String()) {
		t.Errorf("pending video should poll its detail endpoint: %s", body)
	}

	v.TranscodedURL = "https://cdn.example/watermarked/a/out.mp4"
	rr = httptest.NewRecorder()
	r.Render(rr, http.StatusOK, PageVideoDetail, map[string]interface{}{"Video": v})
	if strings.Contains(rr.Body.String(), "js/watch.js") {
		t.Errorf("transcoded video should not poll")
	}
}

func TestRender_UnknownPage(t *testing.T) {
	if err := newTestRenderer(t).Render(httptest.NewRecorder(), 200, "nope.html", nil); err == nil {
		t.Fatalf("expected error for unknown page")
	}
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"css/site.css", "js/watch.js", "js/upload.js"} {
		if _, err := fs.Stat(Static(), name); err != nil {
			t.Errorf("missing static asset %s: %v", name, err)
		}
	}
}
