//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/2beens/gymstreak/internal/auth"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

const testPassword = "testpass"

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func newTestCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    gofakeit.Email(),
		Password: testPassword,
	}
}

func doRequest(ctx context.Context, t *testing.T, client *http.Client, method, path, token string, body any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", serverEndpoint, path), reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(respBytes, dst), string(respBytes))
}

func doSignup(ctx context.Context, t *testing.T, client *http.Client, creds auth.Credentials) string {
	t.Helper()
	resp := doRequest(ctx, t, client, http.MethodPost, "/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var signupResp map[string]string
	decodeBody(t, resp, &signupResp)
	require.NotEmpty(t, signupResp["userId"])
	return signupResp["userId"]
}

func doLogin(ctx context.Context, t *testing.T, client *http.Client, creds auth.Credentials) loginResponse {
	t.Helper()
	resp := doRequest(ctx, t, client, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp loginResponse
	decodeBody(t, resp, &loginResp)
	require.NotEmpty(t, loginResp.Token)
	return loginResp
}
