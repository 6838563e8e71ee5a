package dto

import "time"

// AuthURLResponse is returned by the initiate-authorization endpoints.
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
	Flow    string `json:"flow"`
}

// ConnectionStatusResponse reports whether a platform is connected and which
// credential legs are present.
type ConnectionStatusResponse struct {
	Connected    bool       `json:"connected"`
	Platform     string     `json:"platform"`
	Handle       string     `json:"handle,omitempty"`
	HasOAuth1    bool       `json:"has_oauth1"`
	HasOAuth2    bool       `json:"has_oauth2"`
	Scopes       string     `json:"scopes,omitempty"`
	TokenExpires *time.Time `json:"token_expires,omitempty"`
}

// ValidateResponse is the pre-flight capability verdict the dashboard uses
// to gate its UI.
type ValidateResponse struct {
	Platform   string `json:"platform"`
	Capability string `json:"capability"`
	Verdict    string `json:"verdict"`
	Detail     string `json:"detail,omitempty"`
}
