package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/coinkeeper/pkg/api"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.RegisterRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		assert.Equal(t, "testuser", req.Username)
		assert.NotEmpty(t, req.Password)

		w.WriteHeader(http.StatusCreated)
		resp := api.RegisterResponse{
			UserID:  "user-123",
			Message: "Registration successful",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Register(context.Background(), api.RegisterRequest{
		Username: "testuser",
		Password: "correct horse battery",
	})

	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
	assert.Equal(t, "Registration successful", resp.Message)
}

func TestClient_Register_Error(t *testing.T) {
	tests := []struct {
		responseBody   interface{}
		name           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:       "user already exists",
			statusCode: http.StatusConflict,
			responseBody: api.ErrorResponse{
				Error: "user already exists",
			},
			expectedErrMsg: "server error (409): user already exists",
		},
		{
			name:       "invalid request",
			statusCode: http.StatusBadRequest,
			responseBody: api.ErrorResponse{
				Error: "invalid username",
			},
			expectedErrMsg: "server error (400): invalid username",
		},
		{
			name:           "internal server error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   "Internal Server Error",
			expectedErrMsg: "request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if errResp, ok := tt.responseBody.(api.ErrorResponse); ok {
					_ = json.NewEncoder(w).Encode(errResp)
				} else {
					_, _ = w.Write([]byte(tt.responseBody.(string)))
				}
			}))
			defer server.Close()

			client := NewClient(server.URL)
			resp, err := client.Register(context.Background(), api.RegisterRequest{
				Username: "testuser",
				Password: "correct horse battery",
			})

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)
		})
	}
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req api.LoginRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		assert.Equal(t, "testuser", req.Username)
		assert.Equal(t, "laptop-1", req.DeviceID)

		w.WriteHeader(http.StatusOK)
		resp := api.TokenResponse{
			AccessToken:  "access_token_123",
			RefreshToken: "refresh_token_456",
			ExpiresIn:    900,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), api.LoginRequest{
		Username: "testuser",
		Password: "correct horse battery",
		DeviceID: "laptop-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "access_token_123", resp.AccessToken)
	assert.Equal(t, "refresh_token_456", resp.RefreshToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		resp := api.ErrorResponse{
			Error: "invalid credentials",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), api.LoginRequest{
		Username: "testuser",
		Password: "wrong",
		DeviceID: "laptop-1",
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "server error (401): invalid credentials")
}

func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/auth/refresh", r.URL.Path)

		var req api.RefreshRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "refresh_token_456", req.RefreshToken)

		w.WriteHeader(http.StatusOK)
		resp := api.TokenResponse{
			AccessToken:  "access_token_789",
			RefreshToken: "refresh_token_789",
			ExpiresIn:    900,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Refresh(context.Background(), api.RefreshRequest{
		RefreshToken: "refresh_token_456",
	})

	require.NoError(t, err)
	assert.Equal(t, "access_token_789", resp.AccessToken)
	assert.Equal(t, "refresh_token_789", resp.RefreshToken)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	resp, err := client.Register(ctx, api.RegisterRequest{
		Username: "testuser",
		Password: "correct horse battery",
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("invalid json {{{"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Register(context.Background(), api.RegisterRequest{
		Username: "testuser",
		Password: "correct horse battery",
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestClient_HTTPClientRedirect(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if redirectCount < 3 {
			redirectCount++
			w.Header().Set("Location", "/redirected")
			w.WriteHeader(http.StatusFound)
			return
		}

		w.WriteHeader(http.StatusOK)
		resp := api.RegisterResponse{
			UserID:  "user-123",
			Message: "Success after redirect",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Register(context.Background(), api.RegisterRequest{
		Username: "testuser",
		Password: "correct horse battery",
	})

	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
	assert.Equal(t, 3, redirectCount)
}
