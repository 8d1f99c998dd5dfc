package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantID(t *testing.T) {
	t.Run("header value selects the tenant", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/api/ledger", nil)
		c.Request.Header.Set("x-user-id", "alice")

		assert.Equal(t, "alice", tenantID(c))
	})

	t.Run("missing header falls back to anon", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/api/ledger", nil)

		assert.Equal(t, "anon", tenantID(c))
	})
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Run("set variable wins", func(t *testing.T) {
		t.Setenv("SPLITSYNC_TEST_VAR", "value")
		assert.Equal(t, "value", getEnvOrDefault("SPLITSYNC_TEST_VAR", "fallback"))
	})

	t.Run("unset variable falls back", func(t *testing.T) {
		assert.Equal(t, "fallback", getEnvOrDefault("SPLITSYNC_TEST_UNSET", "fallback"))
	})
}

func TestHandleStoreError(t *testing.T) {
	run := func(err error) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)
		handleStoreError(c, err)
		return recorder
	}

	t.Run("conflict maps to 409 with the current snapshot", func(t *testing.T) {
		current := VersionedSnapshot{Version: 6, Etag: `"v-6-abc"`}
		resp := run(&ConflictError{Current: current})

		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Contains(t, resp.Body.String(), `"v-6-abc"`)
	})

	t.Run("validation maps to 400", func(t *testing.T) {
		resp := run(&ValidationError{Msg: "total must be positive"})

		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "total must be positive")
	})

	t.Run("not linked maps to 401", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, run(ErrNotLinked).Code)
	})

	t.Run("backend failure maps to 503", func(t *testing.T) {
		err := &BackendError{Op: "save", Err: assert.AnError}
		assert.Equal(t, http.StatusServiceUnavailable, run(err).Code)
	})

	t.Run("unknown errors map to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, run(assert.AnError).Code)
	})
}
