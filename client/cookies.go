package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
)

// StoredCookie is a cookie persisted between runs.
type StoredCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadCookies reads a cookies.json file. A missing file yields no cookies.
func LoadCookies(path string) ([]StoredCookie, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	var cs []StoredCookie
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("parse cookies: %w", err)
	}
	return cs, nil
}

// SaveCookies writes cs to path, readable by the owner only.
func SaveCookies(path string, cs []StoredCookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// NewJar returns a cookie jar holding cs for baseURL.
func NewJar(baseURL string, cs []StoredCookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	hc := make([]*http.Cookie, 0, len(cs))
	for _, c := range cs {
		hc = append(hc, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, hc)
	return jar, nil
}

// JarCookies lists the cookies jar would send to baseURL.
func JarCookies(jar http.CookieJar, baseURL string) []StoredCookie {
	if jar == nil {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	var out []StoredCookie
	for _, c := range jar.Cookies(u) {
		out = append(out, StoredCookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Cookie returns the value of the named cookie the client would send, if any.
func (c *Client) Cookie(name string) (string, bool) {
	for _, ck := range JarCookies(c.HTTPClient.Jar, c.BaseURL) {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}
