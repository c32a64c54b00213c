// Package objectstore uploads files to Supabase Storage over its REST API.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"recruitai/pkg/httpclient"
)

// JDBucket holds uploaded job descriptions.
const JDBucket = "jd-files"

var ErrNotConfigured = errors.New("object storage is not configured")

type Client struct {
	baseURL    string
	serviceKey string
	http       *httpclient.Client
}

// NewClient returns a client for the project at baseURL. Either argument
// being empty yields a client whose uploads return ErrNotConfigured.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       httpclient.NewClient(timeout),
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.serviceKey != ""
}

// Upload stores body at bucket/objectPath and returns its public URL.
func (c *Client) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(objectPath))
	resp, err := c.http.Post(ctx, endpoint, contentType, body, map[string]string{
		"Authorization": "Bearer " + c.serviceKey,
		"apikey":        c.serviceKey,
		"x-upsert":      "false",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}
	if !resp.OK() {
		msg := gjson.GetBytes(resp.Body, "message").String()
		if msg == "" {
			msg = string(resp.Body)
		}
		return "", fmt.Errorf("upload %s/%s: status %d: %s", bucket, objectPath, resp.StatusCode, msg)
	}
	return c.PublicURL(bucket, objectPath), nil
}

func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(objectPath))
}

// RoleJDPath is where a role's JD file is stored: roles/<unix ms>_<name>.
func RoleJDPath(now time.Time, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "jd"
	}
	return fmt.Sprintf("roles/%d_%s", now.UnixMilli(), name)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
