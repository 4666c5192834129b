package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/varnalabs/apitestgen/internal/archive"
	"github.com/varnalabs/apitestgen/internal/cli"
	"github.com/varnalabs/apitestgen/internal/generator"
	"github.com/varnalabs/apitestgen/internal/pipeline"
	"github.com/varnalabs/apitestgen/internal/render"
	"github.com/varnalabs/apitestgen/internal/server"
	"github.com/varnalabs/apitestgen/internal/spec"
)

const petStore = `openapi: 3.0.3
info:
  title: E2E Pet Store
  version: "1.0.0"
servers:
  - url: https://{env}.example.com/v1
    variables:
      env:
        default: api
paths:
  /pets:
    get:
      operationId: listPets
      parameters:
        - name: limit
          in: query
          schema: {type: integer, format: int32}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
    post:
      operationId: createPet
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
  /pets/{petId}:
    get:
      operationId: showPetById
      parameters:
        - name: petId
          in: path
          required: true
          schema: {type: string}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
  /store/inventory:
    get:
      responses:
        "200":
          description: ok
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id: {type: integer, format: int64}
        name: {type: string}
        tag: {type: string}
        born: {type: string, format: date}
`

func writeTempSpec(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "petstore.yaml")
	if err := os.WriteFile(p, []byte(petStore), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digest(t *testing.T, path string) (names []string, sum string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	entries, err := archive.ReadEntries(data)
	if err != nil {
		t.Fatalf("entries %s: %v", path, err)
	}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	h := sha256.Sum256(data)
	return names, hex.EncodeToString(h[:])
}

func TestE2E_Generate_Deterministic(t *testing.T) {
	specPath := writeTempSpec(t)
	dir := t.TempDir()
	zip1 := filepath.Join(dir, "one.zip")
	zip2 := filepath.Join(dir, "two.zip")

	runCLI(t, "generate", "--input", specPath, "--out", zip1)
	runCLI(t, "generate", "--input", specPath, "--out", zip2)

	names1, sum1 := digest(t, zip1)
	names2, sum2 := digest(t, zip2)
	if !slicesEqual(names1, names2) || sum1 != sum2 {
		t.Fatalf("generated archives differ between runs\nnames1=%v\nnames2=%v\nsum1=%s\nsum2=%s", names1, names2, sum1, sum2)
	}

	want := []string{
		"e2e-pet-store-tests/pom.xml",
		"e2e-pet-store-tests/testng.xml",
		"e2e-pet-store-tests/src/test/java/com/automation/tests/base/BaseTest.java",
		"e2e-pet-store-tests/src/test/java/com/automation/tests/model/Pet.java",
		"e2e-pet-store-tests/src/test/java/com/automation/tests/tests/PetsApiTest.java",
		"e2e-pet-store-tests/src/test/java/com/automation/tests/tests/StoreApiTest.java",
	}
	if !slicesEqual(names1, want) {
		t.Fatalf("entries:\n got %v\nwant %v", names1, want)
	}

	data, _ := os.ReadFile(zip1)
	entries, _ := archive.ReadEntries(data)
	contents := map[string]string{}
	for _, e := range entries {
		contents[e.Name] = e.Content
	}
	base := contents["e2e-pet-store-tests/src/test/java/com/automation/tests/base/BaseTest.java"]
	if !strings.Contains(base, `"https://api.example.com/v1"`) {
		t.Fatalf("base url not substituted:\n%s", base)
	}
	pets := contents["e2e-pet-store-tests/src/test/java/com/automation/tests/tests/PetsApiTest.java"]
	for _, fragment := range []string{"testListPets", "testCreatePet", "testShowPetById", "statusCode(201)", `pathParam("petId"`} {
		if !strings.Contains(pets, fragment) {
			t.Errorf("PetsApiTest missing %q", fragment)
		}
	}
	suite := contents["e2e-pet-store-tests/testng.xml"]
	if !strings.Contains(suite, "com.automation.tests.tests.PetsApiTest") || !strings.Contains(suite, "com.automation.tests.tests.StoreApiTest") {
		t.Fatalf("suite should list every test class:\n%s", suite)
	}

	if os.Getenv("APITESTGEN_E2E_ONLINE") == "1" && haveCmd("mvn") {
		out := t.TempDir()
		for _, e := range entries {
			p := filepath.Join(out, filepath.FromSlash(e.Name))
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(p, []byte(e.Content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
		// Compiling needs Maven Central; skip instead of failing when offline.
		if err := runCmdWithTimeout(filepath.Join(out, "e2e-pet-store-tests"), 5*time.Minute, "mvn", "-q", "test-compile"); err != nil {
			t.Skipf("mvn test-compile skipped (likely offline): %v", err)
		}
	}
}

// The HTTP boundary and the CLI must produce byte-identical archives for the same input.
func TestE2E_ServerMatchesCLI(t *testing.T) {
	specPath := writeTempSpec(t)
	zipPath := filepath.Join(t.TempDir(), "cli.zip")
	runCLI(t, "generate", "--input", specPath, "--out", zipPath)
	_, cliSum := digest(t, zipPath)

	engine, err := render.NewEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	svc := pipeline.New(
		spec.NewTranslator(nil, spec.Options{}),
		generator.New(engine, nil, generator.Options{}),
		archive.New(nil),
		nil,
	)
	ts := httptest.NewServer(server.New(svc, nil).Handler())
	defer ts.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(server.FileField, "petstore.yaml")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	_, _ = fw.Write([]byte(petStore))
	_ = mw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+server.ProjectsPath, &body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="petstore-automation-tests.zip"` {
		t.Fatalf("content disposition %q", cd)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	h := sha256.Sum256(data)
	if got := hex.EncodeToString(h[:]); got != cliSum {
		t.Fatalf("server archive %s differs from cli archive %s", got, cliSum)
	}
}

func haveCmd(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runCmdWithTimeout(dir string, timeout time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &execError{err: err, output: out.String()}
	}
	return nil
}

type execError struct {
	err    error
	output string
}

func (e *execError) Error() string { return e.err.Error() + ": " + e.output }

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
