package sharepoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/koltyakov/gosip"
	"github.com/koltyakov/gosip/auth/saml"
)

const strategyBearer = "bearer"

// BearerAuth authenticates gosip requests with an already acquired access token.
type BearerAuth struct {
	SiteURL     string `json:"siteUrl"`
	AccessToken string `json:"-"`
}

var _ gosip.AuthCnfg = (*BearerAuth)(nil)

func NewBearerAuth(siteURL, accessToken string) *BearerAuth {
	return &BearerAuth{SiteURL: siteURL, AccessToken: accessToken}
}

// NewUserAuth authenticates with a user name and password, like the SharePoint
// Online sign-in page does.
func NewUserAuth(siteURL, username, password string) gosip.AuthCnfg {
	return &saml.AuthCnfg{
		SiteURL:  siteURL,
		Username: username,
		Password: password,
	}
}

func (a *BearerAuth) GetAuth() (string, int64, error) {
	if a.AccessToken == "" {
		return "", 0, fmt.Errorf("bearer auth: access token is empty")
	}
	return a.AccessToken, 0, nil
}

func (a *BearerAuth) SetAuth(req *http.Request, _ *gosip.SPClient) error {
	token, _, err := a.GetAuth()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (a *BearerAuth) ParseConfig(jsonConf []byte) error {
	return json.Unmarshal(jsonConf, a)
}

func (a *BearerAuth) ReadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read auth config: %w", err)
	}
	return a.ParseConfig(data)
}

// WriteConfig stores the site URL only; tokens are never written here.
func (a *BearerAuth) WriteConfig(configPath string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

func (a *BearerAuth) GetSiteURL() string  { return a.SiteURL }
func (a *BearerAuth) GetStrategy() string { return strategyBearer }
