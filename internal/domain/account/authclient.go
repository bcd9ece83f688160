package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AuthService is the managed identity provider that owns credentials.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*User, *Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// RejectedError is a 4xx answer from the auth service. Message is safe to
// show to clients.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("auth service rejected request (%d): %s", e.StatusCode, e.Message)
}

// GoTrueClient talks to a GoTrue compatible auth API under {baseURL}/auth/v1.
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoTrueClient(baseURL, apiKey string, httpClient *http.Client) *GoTrueClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse covers both shapes sign-up can return: a session with a
// nested user, or the bare user when confirmation is pending.
type tokenResponse struct {
	Session
	User *User  `json:"user"`
	ID   string `json:"id"`
}

func (c *GoTrueClient) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	return c.credentialsCall(ctx, "/signup", credentials{Email: email, Password: password})
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*User, *Session, error) {
	return c.credentialsCall(ctx, "/token?grant_type=password", credentials{Email: email, Password: password})
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, "/logout", nil, accessToken)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *GoTrueClient) credentialsCall(ctx context.Context, path string, body credentials) (*User, *Session, error) {
	resp, err := c.do(ctx, path, body, "")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read auth response: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, nil, fmt.Errorf("decode auth response: %w", err)
	}

	user := tr.User
	if user == nil && tr.ID != "" {
		user = &User{}
		if err := json.Unmarshal(raw, user); err != nil {
			return nil, nil, fmt.Errorf("decode auth user: %w", err)
		}
	}
	var session *Session
	if tr.AccessToken != "" {
		s := tr.Session
		session = &s
	}
	return user, session, nil
}

// do posts body and returns the response when it is 2xx.
func (c *GoTrueClient) do(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("auth service returned %d", resp.StatusCode)
	}
	return nil, &RejectedError{StatusCode: resp.StatusCode, Message: rejectionMessage(raw)}
}

// rejectionMessage picks the human readable field out of an error body.
func rejectionMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return "request rejected by auth service"
}

func isRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	ok := errors.As(err, &re)
	return re, ok
}
