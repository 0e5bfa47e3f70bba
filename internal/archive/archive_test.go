package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	if got := Key("E100", id); got != "enrollments/E100/6ba7b810-9dad-11d1-80b4-00c04fd430c8.jpg" {
		t.Errorf("unexpected key: %s", got)
	}
	if got := Key("A/B 7", id); !strings.HasPrefix(got, "enrollments/A%2FB%207/") {
		t.Errorf("expected escaped employee code, got %s", got)
	}
}

func TestS3_Store(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3(config.ArchiveConfig{
		Bucket:          "enrollments-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key, err := store.Store(context.Background(), "E100", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("expected PUT, got %s", method)
	}
	if path != "/enrollments-bucket/"+key {
		t.Errorf("unexpected path %s for key %s", path, key)
	}
	if string(body) != "jpeg-bytes" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestNop_Store(t *testing.T) {
	key, err := Nop{}.Store(context.Background(), "E100", []byte("x"))
	if err != nil || key != "" {
		t.Errorf("expected no-op, got %q, %v", key, err)
	}
}
