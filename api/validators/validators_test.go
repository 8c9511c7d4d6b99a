package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

type lineRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type bodyRequest struct {
	Items []lineRequest `json:"items" validate:"required,dive"`
	Note  string        `json:"note,omitempty" validate:"omitempty,max=5"`
}

func TestDecodeJSONBodyReportsNestedField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"quantity":0}]}`))
	var dest bodyRequest
	err := DecodeJSONBody(req, &dest)

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["items[0].quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"quantity":1}],"price":1}`))
	var dest bodyRequest
	if err := DecodeJSONBody(req, &dest); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest bodyRequest
	err := DecodeJSONBody(req, &dest)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body required" {
		t.Fatalf("expected body required error, got %v", err)
	}
}

func TestDecodeOptionalJSONBodyAllowsEmpty(t *testing.T) {
	type optional struct {
		Email string `json:"email,omitempty" validate:"omitempty,email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest optional
	if err := DecodeOptionalJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	if err := DecodeOptionalJSONBody(req, &dest); err == nil {
		t.Fatal("expected validation error for bad email")
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25", nil)
	got, err := ParseQueryInt(req, "limit", 10, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("expected 25, got %d (%v)", got, err)
	}

	got, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 10, 1, 100)
	if err != nil || got != 10 {
		t.Fatalf("expected default 10, got %d (%v)", got, err)
	}

	if _, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "limit", 10, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
	if _, err := ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=ten", nil), "limit", 10, 1, 100); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseQueryBool(t *testing.T) {
	got, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unread_only=1", nil), "unread_only", false)
	if err != nil || !got {
		t.Fatalf("expected true, got %v (%v)", got, err)
	}
	if _, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?unread_only=maybe", nil), "unread_only", false); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  item   arrived\n damaged ", 0, "item arrived damaged"},
		{"café au lait", 4, "café"},
		{"short", 10, "short"},
		{"   ", 5, ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in, tc.max); got != tc.want {
			t.Fatalf("CleanText(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

type domainRequest struct {
	Amount string `json:"amount" validate:"required,money"`
	Status string `json:"status,omitempty" validate:"omitempty,order_status"`
	Kind   string `json:"kind,omitempty" validate:"omitempty,service_type"`
}

func TestDomainTags(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"valid":          {`{"amount":"49.99","status":" Shipped ","kind":"IPTV"}`, ""},
		"zero amount":    {`{"amount":"0"}`, "amount"},
		"text amount":    {`{"amount":"ten"}`, "amount"},
		"sub-cent":       {`{"amount":"1.001"}`, "amount"},
		"unknown status": {`{"amount":"1","status":"archived"}`, "status"},
		"unknown kind":   {`{"amount":"1","kind":"plumbing"}`, "kind"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var dest domainRequest
			err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)), &dest)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			typed := pkgerrors.As(err)
			if typed == nil {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := typed.Details().(map[string]string)
			if details[tc.field] == "" {
				t.Fatalf("expected %s in details, got %v", tc.field, details)
			}
		})
	}
}
