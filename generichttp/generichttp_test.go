package generichttp_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyobs/pyobs-sbig/generichttp"
)

func TestRouteTableBindAndEndpoints(t *testing.T) {
	hit := false
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/thing"}: func(w http.ResponseWriter, r *http.Request) {
			hit = true
			w.WriteHeader(http.StatusOK)
		},
		generichttp.MethodPath{Method: http.MethodPost, Path: "/thing"}: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	assert.Equal(t, []string{"GET /thing", "POST /thing"}, rt.Endpoints())

	r := chi.NewRouter()
	rt.Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/thing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, hit)
}

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"camera":   "/camera",
		"/camera":  "/camera",
		"/camera/": "/camera",
		"/":        "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, generichttp.SubMuxSanitize(in))
	}
}

func TestGetSetFloat(t *testing.T) {
	var val float64
	r := chi.NewRouter()
	r.MethodFunc(http.MethodGet, "/v", generichttp.GetFloat(func() (float64, error) { return val, nil }))
	r.MethodFunc(http.MethodPost, "/v", generichttp.SetFloat(func(f float64) error { val = f; return nil }))
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v", "application/json", httpBody(`{"f64": 2.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.5, val)

	resp, err = http.Post(srv.URL+"/v", "application/json", httpBody(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func httpBody(s string) io.Reader {
	return strings.NewReader(s)
}
