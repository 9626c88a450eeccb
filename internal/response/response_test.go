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

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	return r
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"id": RequestID(c)}) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	var body struct {
		Data     map[string]string `json:"data"`
		Metadata Metadata          `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc-123", body.Data["id"])
	assert.Equal(t, "abc-123", body.Metadata.RequestID)
}

func TestRequestIDIsGenerated(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { Success(c, http.StatusOK, nil) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestFailWithData(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) {
		FailWithData(c, http.StatusConflict, ErrAlreadyCompleted, gin.H{"score": 80})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Data  map[string]float64 `json:"data"`
		Error ErrorBody          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrAlreadyCompleted, body.Error.Code)
	assert.Equal(t, GetMessage(ErrAlreadyCompleted), body.Error.Message)
	assert.Equal(t, 80.0, body.Data["score"])
}

func TestGetMessageDefault(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred.", GetMessage(ErrCode("SOMETHING_ELSE")))
}
