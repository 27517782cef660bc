package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	if IsNoSuchKey(nil) {
		t.Fatal("nil error must not be NoSuchKey")
	}
	if !IsNoSuchKey(fmt.Errorf("get: %w", minio.ErrorResponse{Code: "NoSuchKey"})) {
		t.Fatal("wrapped minio NoSuchKey not detected")
	}
	if !IsNoSuchKey(errors.New("The specified key does not exist.")) {
		t.Fatal("string form not detected")
	}
	if IsNoSuchKey(errors.New("access denied")) {
		t.Fatal("unrelated error detected as NoSuchKey")
	}
}

func TestParseBucketLookup(t *testing.T) {
	cases := map[string]minio.BucketLookupType{
		"":     minio.BucketLookupAuto,
		"auto": minio.BucketLookupAuto,
		"DNS":  minio.BucketLookupDNS,
		"path": minio.BucketLookupPath,
	}
	for raw, want := range cases {
		got, err := parseBucketLookup(raw)
		if err != nil || got != want {
			t.Fatalf("parseBucketLookup(%q) = %v, %v", raw, got, err)
		}
	}
	if _, err := parseBucketLookup("virtual"); err == nil {
		t.Fatal("expected error for unknown lookup")
	}
}

func TestNewScannerWithoutAddrAcceptsEverything(t *testing.T) {
	s := NewScanner("  ")
	if _, ok := s.(NopScanner); !ok {
		t.Fatalf("expected NopScanner, got %T", s)
	}
	if err := s.Scan(strings.NewReader("anything")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
