package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"x": 1}) })
	r.GET("/closed", func(c *gin.Context) { Fail(c, http.StatusConflict, ErrSessionClosed) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(HeaderRequestID))

	var ok struct {
		StatusCode int            `json:"statusCode"`
		Message    string         `json:"message"`
		Result     map[string]int `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	require.Equal(t, 0, ok.StatusCode)
	require.Equal(t, 1, ok.Result["x"])

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set(HeaderRequestID, "3f0c8a52-8f57-4a43-9d1c-2f2b0b9f4d11")
	r.ServeHTTP(w, req)
	require.Equal(t, "3f0c8a52-8f57-4a43-9d1c-2f2b0b9f4d11", w.Header().Get(HeaderRequestID))

	var fail Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fail))
	require.Equal(t, ErrSessionClosed, fail.StatusCode)
	require.Equal(t, "The session is closed.", fail.Message)
	require.Nil(t, fail.Result)
}

func TestRequestIDRejectsGarbage(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not\r\na-uuid")
	r.ServeHTTP(w, req)

	require.NotEqual(t, "not\r\na-uuid", w.Body.String())
	require.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())
}
