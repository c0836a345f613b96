//go:build integration_test || all_tests

package test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/2beens/gymstreak/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestSignupLoginLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.redisDataCleanup(ctx))

	creds := newTestCredentials()
	userID := doSignup(ctx, t, s.httpClient, creds)

	resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/signup", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	loginResp := doLogin(ctx, t, s.httpClient, auth.Credentials{
		Email:    strings.ToUpper(creds.Email),
		Password: creds.Password,
	})
	assert.Equal(t, userID, loginResp.UserID)

	resp = doRequest(ctx, t, s.httpClient, http.MethodGet, "/streak", loginResp.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/logout", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "logged-out", strings.TrimSpace(string(respBytes)))

	// token is gone after logout
	resp = doRequest(ctx, t, s.httpClient, http.MethodGet, "/streak", loginResp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	resp = doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/logout", loginResp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.redisDataCleanup(ctx))

	creds := newTestCredentials()
	doSignup(ctx, t, s.httpClient, creds)

	cases := map[string]struct {
		loginReq           auth.Credentials
		expectedStatusCode int
	}{
		"good creds": {
			loginReq:           creds,
			expectedStatusCode: http.StatusOK,
		},
		"wrong password": {
			loginReq: auth.Credentials{
				Email:    creds.Email,
				Password: "wrong-password",
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"unknown email": {
			loginReq: auth.Credentials{
				Email:    "nobody@gymstreak.test",
				Password: testPassword,
			},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"empty password": {
			loginReq: auth.Credentials{
				Email: creds.Email,
			},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/login", "", tc.loginReq)
			assert.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			assert.NoError(t, resp.Body.Close())
		})
	}

	t.Run("rate limiting", func(t *testing.T) {
		// simulate login requests brute force attack
		require.NoError(t, s.redisDataCleanup(ctx))

		badCreds := auth.Credentials{
			Email:    creds.Email,
			Password: "brute-force",
		}
		for i := 1; i <= loginAttemptsPerMin+5; i++ {
			resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/login", "", badCreds)
			if i <= loginAttemptsPerMin {
				require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "iteration: %d", i)
			} else {
				require.Equal(t, http.StatusTooEarly, resp.StatusCode, "iteration: %d", i)
			}
			assert.NoError(t, resp.Body.Close())
		}

		// logout is never limited
		resp := doRequest(ctx, t, s.httpClient, http.MethodPost, "/auth/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NoError(t, resp.Body.Close())

		require.NoError(t, s.redisDataCleanup(ctx))
	})
}
