package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRestyCheckAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"run","count":3}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Record Not Found"}`))
		}
	}))
	defer srv.Close()

	hc := NewHTTPClient(DefaultPolicy(), nil)
	c := NewResty(hc, srv.URL)

	resp, err := c.R().Get("/ok")
	require.NoError(t, Check(resp, err))

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, Decode(resp, &out))
	assert.Equal(t, "run", out.Name)
	assert.Equal(t, 3, out.Count)

	resp, err = c.R().SetQueryParam("key", "secret").Get("/missing")
	err = Check(resp, err)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Contains(t, se.Snippet, "Record Not Found")
	assert.NotContains(t, se.URL, "secret")
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestCheckPassesTransportErrors(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, Check(nil, boom))
}
