package carbon

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	loginPath = "/api/auth/login"
	mePath    = "/api/auth/me"
)

// Login exchanges credentials for a token. The client's own token source is not touched;
// storing the token is the session's job.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, http.MethodPost, loginPath, body, jsonContentType)
	if err != nil {
		return nil, err
	}

	token := gjson.Get(res.BodyString, "token").String()
	if token == "" {
		return nil, ErrMissingToken
	}
	out := &LoginResult{
		Token:    token,
		Username: gjson.Get(res.BodyString, "username").String(),
	}
	for _, r := range gjson.Get(res.BodyString, "roles").Array() {
		out.Roles = append(out.Roles, r.String())
	}
	if out.Username == "" {
		out.Username = username
	}
	return out, nil
}

// Me asks the platform who the held token belongs to.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	if !c.HasToken() {
		return nil, ErrNoToken
	}
	var id Identity
	if err := c.get(ctx, mePath, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
