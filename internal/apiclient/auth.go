package apiclient

import (
	"context"
	"net/http"

	"github.com/iliyamo/lube-storefront/internal/model"
)

// LoginResult carries what the API returns on a successful sign-in.
type LoginResult struct {
	Token string
	User  model.Profile
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	resp, err := c.do(ctx, call{
		op: "auth.login", method: http.MethodPost, path: "/auth/login",
		body: map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	if err := resp.Field("token", &out.Token); err != nil {
		return LoginResult{}, err
	}
	if err := resp.Field("user", &out.User); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, &RequestFailure{Op: "auth.login", Status: resp.Status, Message: "login response without token"}
	}
	return out, nil
}

// Registration is the sign-up form. Passwords are compared by the caller.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, r Registration) error {
	_, err := c.do(ctx, call{op: "auth.register", method: http.MethodPost, path: "/auth/register", body: r})
	return err
}

// DeleteAccount removes the signed-in visitor's account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := c.do(ctx, call{op: "auth.delete_account", method: http.MethodDelete, path: "/auth/delete-account", needsAuth: true})
	return err
}
