package restclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRestClient(t *testing.T) {
	c := NewRestClient("http://test", map[string]string{"x": "y"}, time.Second)
	assert.Equal(t, "http://test", c.baseURL)
	assert.Equal(t, "y", c.headers["x"])
	require.NotNil(t, c.httpClient)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestDoRequestTransportError(t *testing.T) {
	c := &RestClient{httpClient: &http.Client{Transport: RoundTripFunc(func(_ *http.Request) (*http.Response, error) {
		return nil, errors.New("err")
	})}}
	r, _ := http.NewRequest(http.MethodGet, "http://test", nil)
	b, s, err := c.doRequest(r)
	assert.Error(t, err)
	assert.Equal(t, 0, s)
	assert.Empty(t, b)
}

func TestRestClient(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
			return
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	headers := map[string]string{"Authorization": "Bearer k"}
	cases := []struct {
		name       string
		method     string
		baseURL    string
		endpoint   string
		body       any
		expectOK   bool
		wantStatus int
	}{
		{"get_ok", http.MethodGet, ts.URL, "/", nil, true, http.StatusOK},
		{"post_ok", http.MethodPost, ts.URL, "/", map[string]string{"x": "y"}, true, http.StatusOK},
		{"status_error", http.MethodPost, ts.URL, "/fail", map[string]string{"x": "y"}, false, http.StatusTooManyRequests},
		{"invalid_url", http.MethodGet, "://bad", "", nil, false, 0},
		{"json_error", http.MethodPost, ts.URL, "/", func() {}, false, 0},
		{"server_closed", http.MethodGet, "", "/", nil, false, 0},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			var rc *RestClient
			if cse.name == "server_closed" {
				s := httptest.NewServer(nil)
				s.Close()
				rc = NewRestClient(s.URL, headers, time.Second)
			} else {
				rc = NewRestClient(cse.baseURL, headers, time.Second)
			}
			var b []byte
			var s int
			var err error
			switch cse.method {
			case http.MethodGet:
				b, s, err = rc.Get(ctx, cse.endpoint, nil)
			case http.MethodPost:
				b, s, err = rc.Post(ctx, cse.endpoint, cse.body, nil)
			}
			assert.Equal(t, cse.wantStatus, s)
			if cse.expectOK {
				require.NoError(t, err)
				assert.Equal(t, "ok", string(b))
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestStatusErrorCarriesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	_, status, err := NewRestClient(ts.URL, nil, time.Second).Post(context.Background(), "/", map[string]string{"input": "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Body, `"input":"x"`)
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
