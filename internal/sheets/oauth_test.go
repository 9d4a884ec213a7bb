package sheets

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  string
		status   int
		noResult bool
	}{
		{name: "code received", query: "state=s1&code=abc", wantCode: "abc", status: http.StatusOK},
		{name: "missing code", query: "state=s1", wantErr: "no authorization code", status: http.StatusOK},
		{name: "consent denied", query: "state=s1&error=access_denied", wantErr: "access_denied", status: http.StatusOK},
		{name: "wrong state", query: "state=other&code=abc", status: http.StatusBadRequest, noResult: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.noResult {
				assert.Empty(t, results)
				return
			}

			require.Len(t, results, 1)
			res := <-results
			if tt.wantErr != "" {
				require.Error(t, res.err)
				assert.Contains(t, res.err.Error(), tt.wantErr)
				assert.True(t, strings.Contains(rec.Body.String(), "Failed"))
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCode, res.code)
		})
	}
}

func TestOAuth2ConfigRedirect(t *testing.T) {
	cfg := OAuth2Config{ClientID: "id", ClientSecret: "secret", CallbackAddr: "localhost:9999"}.oauth()
	assert.Equal(t, "http://localhost:9999/callback", cfg.RedirectURL)
	assert.Contains(t, cfg.Scopes[0], "spreadsheets")
}
