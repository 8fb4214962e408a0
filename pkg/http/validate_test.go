package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type latestQuery struct {
	Symbol string `query:"symbol" validate:"omitempty,max=10"`
	Limit  int    `query:"limit" default:"10" validate:"gte=1,lte=100"`
}

func bindQuery(t *testing.T, query string, req interface{}) interface{} {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+query, nil), httptest.NewRecorder())
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	req := &latestQuery{}
	assert.Nil(t, bindQuery(t, "symbol=KLTO", req))
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, "KLTO", req.Symbol)
}

func TestReadAndValidateRequestNamesQueryField(t *testing.T) {
	verr := bindQuery(t, "limit=500", &latestQuery{})
	require.IsType(t, []ValidationError{}, verr)

	errs := verr.([]ValidationError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "limit must be 100 or less", errs[0].Message)
	assert.Equal(t, "100", errs[0].Params["max"])
}

func TestReadAndValidateRequestBindFailure(t *testing.T) {
	verr := bindQuery(t, "limit=lots", &latestQuery{})
	require.IsType(t, []ValidationError{}, verr)
	assert.Equal(t, "ERR_BIND", verr.([]ValidationError)[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, UpstreamError("symbol", "quote feed down")))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_UPSTREAM"`)
	assert.Contains(t, rec.Body.String(), `"field":"symbol"`)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
