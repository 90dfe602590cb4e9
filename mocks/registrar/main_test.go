package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, query string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/interface.asp?"+query, nil))
	return rr.Body.String()
}

func TestPurchaseTakesTheName(t *testing.T) {
	reg := newRegistrar([]string{"taken.com"}, 0)

	if body := get(t, reg, "command=check&sld=taken&tld=com"); !strings.Contains(body, "<RRPCode>211</RRPCode>") {
		t.Fatalf("taken.com should be unavailable: %s", body)
	}
	if body := get(t, reg, "command=check&sld=fresh&tld=com"); !strings.Contains(body, "<RRPCode>210</RRPCode>") {
		t.Fatalf("fresh.com should be available: %s", body)
	}
	if body := get(t, reg, "command=Purchase&sld=fresh&tld=com"); !strings.Contains(body, "<OrderID>157001</OrderID>") {
		t.Fatalf("unexpected purchase response: %s", body)
	}
	if body := get(t, reg, "command=Purchase&sld=fresh&tld=com"); !strings.Contains(body, "<ErrCount>1</ErrCount>") {
		t.Fatalf("second purchase should fail: %s", body)
	}
}
