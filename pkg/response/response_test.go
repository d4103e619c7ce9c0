package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		send   func(c *gin.Context)
		status int
		ok     bool
	}{
		{"ok", func(c *gin.Context) { OK(c, gin.H{"a": 1}) }, http.StatusOK, true},
		{"created", func(c *gin.Context) { Created(c, gin.H{"a": 1}) }, http.StatusCreated, true},
		{"bad request", func(c *gin.Context) { BadRequest(c, "nope") }, http.StatusBadRequest, false},
		{"conflict", func(c *gin.Context) { Conflict(c, "dup") }, http.StatusConflict, false},
		{"internal", func(c *gin.Context) { Internal(c, "boom") }, http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tc.send(c)

			assert.Equal(t, tc.status, w.Code)
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.ok, body.Success)
			if !tc.ok {
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestConflictWith_CarriesData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ConflictWith(c, "Event already scanned by guest", gin.H{"alreadyScanned": true})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"success":false,"data":{"alreadyScanned":true},"error":"Event already scanned by guest"}`, w.Body.String())
}
