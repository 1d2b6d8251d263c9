package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestImgbbUpload(t *testing.T) {
	var gotKey, gotImage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotImage = r.FormValue("image")
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/abc.png"}}`))
	}))
	defer srv.Close()

	up := NewImgbb("secret", srv.URL, nil, 0)
	url, err := up.Upload(context.Background(), "data:image/png;base64,iVBORw0KGgo=")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://i.ibb.co/abc.png" {
		t.Fatalf("url %q", url)
	}
	if gotKey != "secret" || gotImage != "iVBORw0KGgo=" {
		t.Fatalf("server got key=%q image=%q", gotKey, gotImage)
	}
}

func TestImgbbRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":{"message":"Invalid API v1 key."}}`))
	}))
	defer srv.Close()

	up := NewImgbb("bad", srv.URL, nil, 0)
	if _, err := up.Upload(context.Background(), "data:image/png;base64,AAAA"); !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if _, err := up.Upload(context.Background(), "data:image/png;base64,"); !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("empty payload: %v", err)
	}
}
