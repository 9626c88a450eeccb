package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitBody struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup(zerolog.Nop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst submitBody
	return Bind(c, &dst)
}

func TestBindMissingField(t *testing.T) {
	fields := bindBody(t, `{}`)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "answers")
	assert.Contains(t, fields["answers"], "required")
}

func TestBindEmptyMapIsAccepted(t *testing.T) {
	fields := bindBody(t, `{"answers": {}}`)
	assert.Nil(t, fields)
}

func TestBindSyntaxError(t *testing.T) {
	fields := bindBody(t, `{"answers":`)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestSetupRegistersTranslations(t *testing.T) {
	Setup(zerolog.Nop())
	Setup(zerolog.Nop())

	require.NotNil(t, trans)
	fields := bindBody(t, `{}`)
	assert.Equal(t, "answers is a required field", fields["answers"])
}
