package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	Module(log, "ledger").WithField("poll_id", "p1").Info("vote cast")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ledger", line["module"])
	assert.Equal(t, "p1", line["poll_id"])
	assert.Equal(t, "vote cast", line["msg"])
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", "text", &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}

func TestRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	log := New("info", "json", &buf)

	r := gin.New()
	r.Use(Requests(log))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http", line["module"])
	assert.Equal(t, "/missing", line["path"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, "warning", line["level"])
}
