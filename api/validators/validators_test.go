package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

type reviewBody struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=10"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func fieldDetails(t *testing.T, err error) pkgerrors.FieldErrors {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields, _ := typed.Details().(pkgerrors.FieldErrors)
	return fields
}

func TestDecodeJSONBodyAcceptsValidBody(t *testing.T) {
	var body reviewBody
	if err := DecodeJSONBody(postJSON(`{"rating":4,"comment":"fresh"}`), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rating != 4 || body.Comment != "fresh" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyNamesFailingFields(t *testing.T) {
	var body reviewBody
	err := DecodeJSONBody(postJSON(`{"rating":9,"comment":"far too long a comment"}`), &body)
	fields := fieldDetails(t, err)
	if fields["rating"] != "rating must be at most 5" {
		t.Fatalf("unexpected rating message %q", fields["rating"])
	}
	if fields["comment"] != "comment must be at most 10 characters" {
		t.Fatalf("unexpected comment message %q", fields["comment"])
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"rating":3,"stars":3}`,
		"trailing": `{"rating":3} {"rating":4}`,
		"syntax":   `{"rating":`,
		"large":    `{"comment":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, raw := range cases {
		var body reviewBody
		err := DecodeJSONBody(postJSON(raw), &body)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONBodyReportsWrongType(t *testing.T) {
	var body reviewBody
	fields := fieldDetails(t, DecodeJSONBody(postJSON(`{"rating":"five"}`), &body))
	if fields["rating"] != "rating has the wrong type, expected int" {
		t.Fatalf("unexpected message %q", fields["rating"])
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&page=x&size=500", nil)
	if n, err := ParseQueryInt(req, "limit", 10, 1, 50); err != nil || n != 20 {
		t.Fatalf("limit: n=%d err=%v", n, err)
	}
	if n, err := ParseQueryInt(req, "missing", 10, 1, 50); err != nil || n != 10 {
		t.Fatalf("default: n=%d err=%v", n, err)
	}
	if _, err := ParseQueryInt(req, "page", 1, 1, 50); fieldDetails(t, err)["page"] == "" {
		t.Fatalf("expected page error")
	}
	if _, err := ParseQueryInt(req, "size", 1, 1, 50); fieldDetails(t, err)["size"] != "size must be between 1 and 50" {
		t.Fatalf("unexpected size error %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  12 Kloof   Street \n Cape Town ", 0, "12 Kloof Street Cape Town"},
		{"leave\x00 at\tgate", 0, "leave at gate"},
		{"abcd", 3, "abc"},
		{"ab cd", 3, "ab"},
		{"Durbanvïlle", 8, "Durbanvï"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
