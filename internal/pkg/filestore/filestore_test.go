package filestore

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"taskhub/internal/apperr"
)

// newFileHeader 通过真实的 multipart 解析构造 FileHeader。
func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestSave_RandomizedNameKeepsExtension(t *testing.T) {
	s, err := New(t.TempDir(), 1024, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first, err := s.Save(newFileHeader(t, "report.PDF", []byte("hello")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := s.Save(newFileHeader(t, "report.PDF", []byte("hello")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if first.URL == second.URL {
		t.Fatalf("expected distinct stored names, got %s twice", first.URL)
	}
	if !strings.HasPrefix(first.URL, PublicPrefix+"/") || !strings.HasSuffix(first.URL, ".pdf") {
		t.Fatalf("unexpected url %s", first.URL)
	}
	if first.OriginalName != "report.PDF" || first.Size != 5 {
		t.Fatalf("unexpected stored file %+v", first)
	}
	if _, err := os.Stat(s.Path(first.URL)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestSave_RejectsOversize(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 4, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, err = s.Save(newFileHeader(t, "big.bin", []byte("123456789")))
	if apperr.KindOf(err) != apperr.KindPayloadTooLarge {
		t.Fatalf("expected payload too large, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected nothing stored, found %d files", len(entries))
	}
}

func TestRemove(t *testing.T) {
	s, err := New(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	stored, err := s.Save(newFileHeader(t, "a.txt", []byte("x")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.Remove(stored.URL); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(s.Path(stored.URL)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// 再次删除不存在的文件视为成功
	if err := s.Remove(stored.URL); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestPath_StripsTraversal(t *testing.T) {
	s, err := New(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got := s.Path("/uploads/../../etc/passwd")
	if !strings.HasPrefix(got, s.Dir()) || !strings.HasSuffix(got, "passwd") {
		t.Fatalf("unexpected path %s", got)
	}
}
