package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testFrame() image.Image {
	return image.NewGray(image.Rect(0, 0, 8, 8))
}

func TestVisionRecognize(t *testing.T) {
	var gotAuth string
	var gotReq visionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello world"}},
			},
		})
	}))
	defer srv.Close()

	v := NewVision(srv.URL, "test-key", "test-model")
	res, err := v.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if res.Text != "Hello world" {
		t.Errorf("Text = %q, want %q", res.Text, "Hello world")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || len(gotReq.Messages[0].Content) != 2 {
		t.Fatalf("unexpected message shape: %+v", gotReq.Messages)
	}
	if img := gotReq.Messages[0].Content[1].ImageURL; img == nil || !strings.HasPrefix(img.URL, "data:image/png;base64,") {
		t.Error("second content part should carry the frame as a data URI")
	}
}

func TestVisionEmptyTextIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": ""}},
			},
		})
	}))
	defer srv.Close()

	v := NewVision(srv.URL, "key", "model")
	res, err := v.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("empty text should not be an error, got %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestVisionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVision(srv.URL, "key", "model")
	if _, err := v.Recognize(context.Background(), testFrame()); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestVisionNoKeyUnavailable(t *testing.T) {
	v := NewVision("http://localhost:0", "", "model")
	_, err := v.Recognize(context.Background(), testFrame())
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestTesseractMissingBinaryUnavailable(t *testing.T) {
	e := NewTesseract("definitely-not-a-real-binary-xyz", "eng")
	_, err := e.Recognize(context.Background(), testFrame())
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}
