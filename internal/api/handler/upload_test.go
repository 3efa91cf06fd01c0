package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/service"
)

func newUploadHandler(store *fakeStore) (*UploadHandler, *fakeSupabase) {
	sb := newFakeSupabase()
	svc := service.NewUploadService(store, discardLogger())
	return NewUploadHandler(auth.NewResolver(sb, testCookie), svc, discardLogger()), sb
}

// multipartBody builds a multipart form with one file part and optional
// fields, returning the body and its content type.
func multipartBody(t *testing.T, filename, fileType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", fileType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUpload_Success(t *testing.T) {
	store := &fakeStore{}
	h, _ := newUploadHandler(store)

	body, contentType := multipartBody(t, "clip.mp4", "video/mp4", []byte("videobytes"), nil)
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "good-token"})
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	checkStatus(t, rec, http.StatusOK)
	var resp UploadResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || !strings.HasPrefix(resp.URL, "https://cdn.example/videos/user-1/") {
		t.Errorf("resp = %+v", resp)
	}
	if !strings.HasSuffix(store.key, "-clip.mp4") {
		t.Errorf("key = %q", store.key)
	}
}

func TestUpload_FormTokenFallback(t *testing.T) {
	h, _ := newUploadHandler(&fakeStore{})

	body, contentType := multipartBody(t, "clip.mp4", "video/mp4", []byte("x"), map[string]string{
		"accessToken": "good-token",
	})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	checkStatus(t, rec, http.StatusOK)
}

func TestUpload_Unauthenticated(t *testing.T) {
	h, _ := newUploadHandler(&fakeStore{})

	body, contentType := multipartBody(t, "clip.mp4", "video/mp4", []byte("x"), nil)
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	checkStatus(t, rec, http.StatusUnauthorized)
}

func TestUpload_MissingFile(t *testing.T) {
	h, _ := newUploadHandler(&fakeStore{})

	body, contentType := multipartBody(t, "", "", nil, map[string]string{"accessToken": "good-token"})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	checkStatus(t, rec, http.StatusBadRequest)
	var resp UploadResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "File mancante" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestUpload_RejectsNonVideo(t *testing.T) {
	h, _ := newUploadHandler(&fakeStore{})

	body, contentType := multipartBody(t, "page.html", "text/html", []byte("<html>"), nil)
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "good-token"})
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	checkStatus(t, rec, http.StatusBadRequest)
	var resp UploadResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "Il file non è un video" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	h, _ := newUploadHandler(&fakeStore{})

	req := httptest.NewRequest("POST", "/api/upload", strings.NewReader(`{"json":"body"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	checkStatus(t, rec, http.StatusBadRequest)
}
