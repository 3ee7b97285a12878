package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konnektr-io/http-request-operator/internal/httprequest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "` + r.URL.Query().Get("id") + `"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	descriptor := writeFile(t, dir, "descriptor.yaml", `
url: `+srv.URL+`
authentication: genericCredentialType
genericAuthType: httpBasicAuth
sendQuery: true
queryParameters:
  - name: id
    value: "={{ .json.id }}"
`)
	items := writeFile(t, dir, "items.json", `[{"id": "a"}, {"id": "b"}]`)
	creds := writeFile(t, dir, "credentials.yaml", `
httpBasicAuth:
  user: alice
  password: secret
`)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-descriptor", descriptor,
		"-items", items,
		"-credentials", creds,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var out []httprequest.OutputItem
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].JSON["id"])
	assert.Equal(t, 0, out[0].PairedItem.Item)
	assert.Equal(t, "b", out[1].JSON["id"])
	assert.Equal(t, 1, out[1].PairedItem.Item)
}

func TestRunGroupedWithAttachment(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("stored"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	descriptor := writeFile(t, dir, "descriptor.json", `{
  "method": "POST",
  "url": "`+srv.URL+`",
  "sendBody": true,
  "contentType": "binaryData",
  "inputDataFieldName": "file"
}`)
	upload := writeFile(t, dir, "upload.txt", "hello upload")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-descriptor", descriptor,
		"-attach", "file=" + upload,
		"-grouped",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Equal(t, "hello upload", string(received))

	var groups [][]httprequest.OutputItem
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &groups))
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 1)
	assert.Equal(t, "stored", groups[0][0].JSON["data"])
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing descriptor flag", func(t *testing.T) {
		err := run(context.Background(), nil, io.Discard, io.Discard)
		assert.EqualError(t, err, "-descriptor is required")
	})

	t.Run("unknown descriptor field", func(t *testing.T) {
		descriptor := writeFile(t, dir, "unknown.yaml", "url: http://example.com\nretries: 3\n")
		err := run(context.Background(), []string{"-descriptor", descriptor}, io.Discard, io.Discard)
		assert.ErrorContains(t, err, "failed to parse descriptor")
	})

	t.Run("configuration error", func(t *testing.T) {
		descriptor := writeFile(t, dir, "ftp.yaml", "url: ftp://example.com\n")
		err := run(context.Background(), []string{"-descriptor", descriptor}, io.Discard, io.Discard)
		require.Error(t, err)
		assert.True(t, httprequest.IsConfigError(err))
	})

	t.Run("bad attachment flag", func(t *testing.T) {
		descriptor := writeFile(t, dir, "ok.yaml", "url: http://example.com\n")
		err := run(context.Background(), []string{"-descriptor", descriptor, "-attach", "nofield"}, io.Discard, io.Discard)
		assert.ErrorContains(t, err, "expected field=path")
	})
}
