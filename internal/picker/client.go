package picker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrStatus is wrapped by errors for non-success HTTP responses.
var ErrStatus = errors.New("unexpected status")

const maxBody = 1 << 20

// Client calls the picker endpoints of one chat server.
type Client struct {
	base   *url.URL
	client *http.Client
}

// NewClient returns a client for the server at baseURL. A nil hc uses a
// client with a 10 second timeout.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, client: hc}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// Resolve makes a possibly relative image URL absolute.
func (c *Client) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", ErrStatus, path, resp.StatusCode)
	}
	return body, nil
}

func sexQuery(sex Sex) url.Values {
	return url.Values{"sex": {strconv.Itoa(int(sex))}}
}

// Both the {Name, ID} and the older {ID, Text} shapes are accepted.
type nameResponse struct {
	ID   int    `json:"ID"`
	Name string `json:"Name"`
	Text string `json:"Text"`
}

func (r nameResponse) toName() Name {
	text := r.Name
	if text == "" {
		text = r.Text
	}
	return Name{ID: r.ID, Text: text}
}

// Both {ImageID, Path} and {id, url} are accepted.
type imageResponse struct {
	ImageID int    `json:"ImageID"`
	ID      int    `json:"id"`
	Path    string `json:"Path"`
	URL     string `json:"url"`
}

func (r imageResponse) toImage() Image {
	img := Image{ID: r.ImageID, URL: r.Path}
	if img.ID == 0 {
		img.ID = r.ID
	}
	if img.URL == "" {
		img.URL = r.URL
	}
	return img
}

// RandomName fetches a random name for sex.
func (c *Client) RandomName(ctx context.Context, sex Sex) (Name, error) {
	body, err := c.get(ctx, "/getRandomName", sexQuery(sex))
	if err != nil {
		return Name{}, err
	}
	var r nameResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Name{}, fmt.Errorf("parse name: %w", err)
	}
	name := r.toName()
	if name.Text == "" {
		return Name{}, errors.New("parse name: empty name")
	}
	return name, nil
}

// RandomImage fetches a random portrait for sex.
func (c *Client) RandomImage(ctx context.Context, sex Sex) (Image, error) {
	body, err := c.get(ctx, "/getRandomImage", sexQuery(sex))
	if err != nil {
		return Image{}, err
	}
	var r imageResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Image{}, fmt.Errorf("parse image: %w", err)
	}
	return r.toImage(), nil
}

// Images lists every portrait for sex. The response is either
// {"images": [...]} or a bare array.
func (c *Client) Images(ctx context.Context, sex Sex) ([]Image, error) {
	body, err := c.get(ctx, "/getImages", sexQuery(sex))
	if err != nil {
		return nil, err
	}

	var raw []imageResponse
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &raw)
	} else {
		var wrapped struct {
			Images []imageResponse `json:"images"`
		}
		err = json.Unmarshal(trimmed, &wrapped)
		raw = wrapped.Images
	}
	if err != nil {
		return nil, fmt.Errorf("parse images: %w", err)
	}

	images := make([]Image, 0, len(raw))
	for _, r := range raw {
		images = append(images, r.toImage())
	}
	return images, nil
}

// CreateBot posts the creation form. The server answers with a redirect to
// the index page, which is not followed.
func (c *Client) CreateBot(ctx context.Context, nameID, imageID int, sex Sex) error {
	form := url.Values{
		"nameID":  {strconv.Itoa(nameID)},
		"imageID": {strconv.Itoa(imageID)},
		"sex":     {strconv.Itoa(int(sex))},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint("/createBot", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	hc := *c.client
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return fmt.Errorf("%w: POST /createBot: HTTP %d", ErrStatus, resp.StatusCode)
	}
	return nil
}
