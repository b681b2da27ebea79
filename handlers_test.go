package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestPathIDParsesNumeric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "roomId", Value: "42"}}
	id, ok := pathID(c, "roomId")
	if !ok || id != 42 {
		t.Fatalf("expected (42, true) got (%d, %v)", id, ok)
	}
}

func TestPathIDRejectsNonNumeric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// Path segments must never reach the database as raw SQL text; anything
	// that is not a plain unsigned integer is rejected with a 400.
	for _, raw := range []string{
		"",
		"abc",
		"-1",
		"1.5",
		"1 OR 1=1",
		"1;DROP TABLE rooms",
		"1 AND (SELECT 1)",
	} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Params = gin.Params{{Key: "roomId", Value: raw}}
		if _, ok := pathID(c, "roomId"); ok {
			t.Fatalf("expected rejection of %q", raw)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q got %d", raw, rec.Code)
		}
	}
}
