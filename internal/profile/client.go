package profile

import (
	"compress/gzip"
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

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	usersPath       = "/api/users"
	userAgent       = "spigell/lovemeet"
	contentType     = "application/json"
	contentEncoding = "gzip"
	defaultPageSize = 20
	// Guards against a backend that keeps reporting a larger total than it serves.
	maxPages = 500
)

var ErrBadStatus = errors.New("bad status")

// Client is a Source backed by the profile API.
type Client struct {
	token      string
	viewer     *Viewer
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	PageSize   int
}

// Viewer describes the user the candidates are fetched for.
type Viewer struct {
	ID          string
	Coordinates *Coordinates
}

type usersResponse struct {
	Users []map[string]any `json:"users"`
	Total int              `json:"total"`
	Limit int              `json:"limit"`
	Skip  int              `json:"skip"`
}

type userDocument struct {
	ObjectID      any          `mapstructure:"_id"`
	FirebaseUID   string       `mapstructure:"firebaseUid"`
	Name          string       `mapstructure:"name"`
	Age           int          `mapstructure:"age"`
	Bio           string       `mapstructure:"bio"`
	City          string       `mapstructure:"city"`
	ProfileImages []string     `mapstructure:"profileImages"`
	PhotoURL      string       `mapstructure:"photoURL"`
	Hobbies       []string     `mapstructure:"hobbies"`
	Location      *Coordinates `mapstructure:"location"`
	IsComplete    bool         `mapstructure:"isComplete"`
}

func NewClient(apiURL, token string, viewer *Viewer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if viewer == nil {
		viewer = &Viewer{}
	}

	return &Client{
		token:  token,
		viewer: viewer,
		logger: logger,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
		PageSize:  defaultPageSize,
	}
}

// Candidates fetches every complete profile except the viewer's, page by page.
func (c *Client) Candidates(ctx context.Context) (*Candidates, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var docs []map[string]any
	skip := 0
	for page := 0; page < maxPages; page++ {
		resp, err := c.getUsers(ctx, pageSize, skip)
		if err != nil {
			return nil, err
		}

		docs = append(docs, resp.Users...)
		skip += len(resp.Users)

		c.logger.Debug("got users page",
			zap.Int("page", page),
			zap.Int("items", len(resp.Users)),
			zap.Int("total", resp.Total),
		)

		if len(resp.Users) == 0 || skip >= resp.Total {
			break
		}
	}

	return c.toCandidates(docs)
}

func (c *Client) toCandidates(docs []map[string]any) (*Candidates, error) {
	var users []*userDocument
	if err := mapstructure.Decode(docs, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}

	candidates := &Candidates{Items: make([]*Candidate, 0, len(users))}
	for _, user := range users {
		if !user.IsComplete {
			continue
		}

		id := user.FirebaseUID
		if id == "" {
			id = valueAsString(user.ObjectID)
		}
		if id == "" || id == c.viewer.ID {
			continue
		}

		images := user.ProfileImages
		if len(images) == 0 && user.PhotoURL != "" {
			images = []string{user.PhotoURL}
		}

		candidate := &Candidate{
			ID:          id,
			Name:        user.Name,
			Age:         user.Age,
			Location:    user.City,
			Bio:         user.Bio,
			Images:      images,
			Tags:        user.Hobbies,
			Coordinates: user.Location,
		}
		if c.viewer.Coordinates != nil && user.Location != nil {
			candidate.Distance = DistanceKm(*c.viewer.Coordinates, *user.Location)
		}

		candidates.Items = append(candidates.Items, candidate)
	}

	return candidates, nil
}

func (c *Client) getUsers(ctx context.Context, limit, skip int) (*usersResponse, error) {
	q := url.Values{}
	if c.viewer.ID != "" {
		q.Set("firebaseUid", c.viewer.ID)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var resp usersResponse
	if err := c.getJSON(ctx, c.APIURL+usersPath, q, &resp); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}

	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, url string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	return json.NewDecoder(reader).Decode(target)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

func valueAsString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any:
		// extended JSON object id
		if oid, ok := typed["$oid"].(string); ok {
			return oid
		}
		return ""
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
