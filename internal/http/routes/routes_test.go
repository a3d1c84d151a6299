package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

func TestRegister_OpenAPI(t *testing.T) {
	api := humachi.New(chi.NewRouter(), NewHumaConfig("http://localhost:8000"))
	Register(api, StubHandlers())

	spec := api.OpenAPI()
	for _, path := range []string{"/check_vin", "/analyze", "/scrape_and_analyze", "/api/v1/health", "/api/v1/backends"} {
		if spec.Paths[path] == nil {
			t.Errorf("OpenAPI spec missing %s", path)
		}
	}
	if item := spec.Paths["/healthz"]; item != nil && item.Get != nil && !item.Get.Hidden {
		t.Error("/healthz should be hidden")
	}
	if op := spec.Paths["/check_vin"].Post; op == nil || op.OperationID != "checkVin" {
		t.Error("/check_vin should be a POST with operation ID checkVin")
	}
}

func TestMountStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>vincheck</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	if !MountStatic(r, dir) {
		t.Fatal("MountStatic() = false for an existing directory")
	}

	for path, want := range map[string]string{"/": "<h1>vincheck</h1>", "/static/app.js": "console.log(1)"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Errorf("GET %s = %d %q, want 200 %q", path, rec.Code, rec.Body.String(), want)
		}
	}
}

func TestMountStatic_MissingDir(t *testing.T) {
	if MountStatic(chi.NewRouter(), filepath.Join(t.TempDir(), "absent")) {
		t.Error("MountStatic() should report false when the directory is missing")
	}
}
