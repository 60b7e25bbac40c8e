package shopx_test

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluescreen10/shopx"
)

func TestQuantityForm(t *testing.T) {
	body := bytes.NewReader([]byte("quantity=3&note=gift&missing=1234"))
	r := httptest.NewRequest("PUT", "/cart/items/7", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	type request struct {
		Quantity int    `form:"quantity,required"`
		Note     string `form:"note"`
		Dummy    int
	}

	req := request{}

	err := shopx.ParseBody(r, &req)
	if err != nil {
		t.Fatal(err)
	}

	if req.Quantity != 3 || req.Note != "gift" {
		t.Fatalf("error parsing form got '%+v'", req)
	}
}

func TestNonIntegerQuantityRejected(t *testing.T) {
	body := bytes.NewReader([]byte("quantity=2.5"))
	r := httptest.NewRequest("PUT", "/cart/items/7", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var req struct {
		Quantity int `form:"quantity,required"`
	}

	if err := shopx.ParseBody(r, &req); err == nil {
		t.Fatal("expected an error for a fractional quantity")
	}
}

func TestMissingRequiredField(t *testing.T) {
	r := httptest.NewRequest("PUT", "/cart/items/7", bytes.NewReader([]byte("note=x")))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var req struct {
		Quantity int `form:"quantity,required"`
	}

	if err := shopx.ParseBody(r, &req); err == nil {
		t.Fatal("expected an error for a missing quantity")
	}
}

func TestProductJSONWithCharset(t *testing.T) {
	body := bytes.NewReader([]byte(`{"id": 42, "name": "Dome Camera", "price": 89.5, "images": ["a.jpg", "b.jpg"]}`))
	r := httptest.NewRequest("POST", "/cart/items", body)
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	p := shopx.Product{}

	err := shopx.ParseBody(r, &p)
	if err != nil {
		t.Fatal(err)
	}

	if p.ID != "42" || p.Name != "Dome Camera" || p.Price != 89.5 || len(p.Images) != 2 {
		t.Fatalf("error parsing json got '%+v'", p)
	}
}

func TestProductStringID(t *testing.T) {
	body := bytes.NewReader([]byte(`{"id": "sku-9", "name": "Motion Sensor", "price": 12}`))
	r := httptest.NewRequest("POST", "/cart/items", body)
	r.Header.Set("Content-Type", "application/json")

	p := shopx.Product{}
	if err := shopx.ParseBody(r, &p); err != nil {
		t.Fatal(err)
	}

	if p.ID != "sku-9" {
		t.Fatalf("expected 'sku-9' got '%s'", p.ID)
	}
}

func TestSimpleXML(t *testing.T) {
	body := bytes.NewReader([]byte("<login><email>ab@c.com</email><password>secret</password></login>"))
	r := httptest.NewRequest("POST", "/login", body)
	r.Header.Set("Content-Type", "application/xml")

	type login struct {
		Email    string `xml:"email"`
		Password string `xml:"password"`
	}

	l := login{}

	err := shopx.ParseBody(r, &l)
	if err != nil {
		t.Fatal(err)
	}

	if l.Email != "ab@c.com" || l.Password != "secret" {
		t.Fatal("error parsing xml")
	}
}

func TestUnsupportedContentType(t *testing.T) {
	r := httptest.NewRequest("POST", "/cart/items", bytes.NewReader([]byte("x")))
	r.Header.Set("Content-Type", "image/png")

	var p shopx.Product
	if err := shopx.ParseBody(r, &p); err == nil {
		t.Fatal("expected an error for an unsupported content type")
	}
}

func TestBodyTooLarge(t *testing.T) {
	tests := []struct {
		contentType string
		body        []byte
	}{
		{"application/json", []byte(`{"note":"` + strings.Repeat("x", shopx.MaxBodySize) + `"}`)},
		{"application/x-www-form-urlencoded", []byte("note=" + strings.Repeat("x", shopx.MaxBodySize))},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/checkout", bytes.NewReader(tt.body))
		r.Header.Set("Content-Type", tt.contentType)

		var req struct {
			Note string `form:"note" json:"note"`
		}

		err := shopx.ParseBody(r, &req)
		if !errors.Is(err, shopx.ErrBodyTooLarge) {
			t.Fatalf("%s: expected '%v' got '%v'", tt.contentType, shopx.ErrBodyTooLarge, err)
		}
	}
}

func TestBodyAtLimit(t *testing.T) {
	note := strings.Repeat("x", shopx.MaxBodySize-len(`{"note":""}`))
	r := httptest.NewRequest("POST", "/checkout", strings.NewReader(`{"note":"`+note+`"}`))
	r.Header.Set("Content-Type", "application/json")

	var req struct {
		Note string `json:"note"`
	}
	if err := shopx.ParseBody(r, &req); err != nil {
		t.Fatal(err)
	}
	if len(req.Note) != len(note) {
		t.Fatalf("expected '%d' bytes got '%d'", len(note), len(req.Note))
	}
}
