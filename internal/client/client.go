// Package client is a typed REST client for the buildings gallery API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// APIError carries the status and message of a failed request.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Building struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Designer      string    `json:"designer"`
	Year          string    `json:"year"`
	Neighbourhood string    `json:"neighbourhood"`
	Era           string    `json:"era"`
	XCoordinate   float64   `json:"xcoordinate"`
	YCoordinate   float64   `json:"ycoordinate"`
	CreatedAt     time.Time `json:"createdAt"`
	Images        []string  `json:"images"`
}

type Impression struct {
	ID         string    `json:"id"`
	BuildingID string    `json:"buildingId"`
	Content    string    `json:"content"`
	Moods      []string  `json:"moods"`
	Photos     []string  `json:"photos"`
	Hyperlinks []string  `json:"hyperlinks"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewBuilding is the body of a create request. An empty ID is replaced by a random one.
type NewBuilding struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Designer      string   `json:"designer"`
	Year          string   `json:"year"`
	Neighbourhood string   `json:"neighbourhood"`
	Era           string   `json:"era"`
	XCoordinate   float64  `json:"xcoordinate"`
	YCoordinate   float64  `json:"ycoordinate"`
	Images        []string `json:"images,omitempty"`
}

// NewImpression is the body of an impression create request. An empty ID is replaced by a random one.
type NewImpression struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Moods      []string `json:"moods"`
	Photos     []string `json:"photos"`
	Hyperlinks []string `json:"hyperlinks"`
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Logger     *zap.Logger
	HTTPClient *http.Client
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var httpClient *resty.Client
	if cfg.HTTPClient != nil {
		httpClient = resty.NewWithClient(cfg.HTTPClient)
	} else {
		httpClient = resty.New()
	}
	httpClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

func (c *Client) ListBuildings(ctx context.Context) ([]Building, error) {
	var result []Building
	if err := c.do(c.request(ctx).SetResult(&result), http.MethodGet, "/api/buildings"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetBuilding(ctx context.Context, id string) (Building, error) {
	var result Building
	request := c.request(ctx).SetPathParam("id", id).SetResult(&result)
	if err := c.do(request, http.MethodGet, "/api/buildings/{id}"); err != nil {
		return Building{}, err
	}
	return result, nil
}

func (c *Client) CreateBuilding(ctx context.Context, building NewBuilding) (Building, error) {
	if building.ID == "" {
		building.ID = uuid.NewString()
	}
	var result Building
	request := c.request(ctx).SetBody(building).SetResult(&result)
	if err := c.do(request, http.MethodPost, "/api/buildings"); err != nil {
		return Building{}, err
	}
	return result, nil
}

func (c *Client) UpdateCoordinates(ctx context.Context, id string, x, y float64) (Building, error) {
	var result Building
	request := c.request(ctx).
		SetPathParam("id", id).
		SetBody(map[string]float64{"xcoordinate": x, "ycoordinate": y}).
		SetResult(&result)
	if err := c.do(request, http.MethodPut, "/api/buildings/{id}"); err != nil {
		return Building{}, err
	}
	return result, nil
}

func (c *Client) AppendImages(ctx context.Context, id string, filenames ...string) (Building, error) {
	var result Building
	request := c.request(ctx).
		SetPathParam("id", id).
		SetBody(map[string][]string{"images": filenames}).
		SetResult(&result)
	if err := c.do(request, http.MethodPatch, "/api/buildings/{id}"); err != nil {
		return Building{}, err
	}
	return result, nil
}

func (c *Client) ListImpressions(ctx context.Context, buildingID string) ([]Impression, error) {
	var result []Impression
	request := c.request(ctx).SetPathParam("id", buildingID).SetResult(&result)
	if err := c.do(request, http.MethodGet, "/api/buildings/{id}/impressions"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateImpression(ctx context.Context, buildingID string, impression NewImpression) (Impression, error) {
	if impression.ID == "" {
		impression.ID = uuid.NewString()
	}
	if impression.Moods == nil {
		impression.Moods = []string{}
	}
	if impression.Photos == nil {
		impression.Photos = []string{}
	}
	if impression.Hyperlinks == nil {
		impression.Hyperlinks = []string{}
	}
	var result Impression
	request := c.request(ctx).SetPathParam("id", buildingID).SetBody(impression).SetResult(&result)
	if err := c.do(request, http.MethodPost, "/api/buildings/{id}/impressions"); err != nil {
		return Impression{}, err
	}
	return result, nil
}

func (c *Client) ListDesigners(ctx context.Context) ([]string, error) {
	var result []string
	if err := c.do(c.request(ctx).SetResult(&result), http.MethodGet, "/api/designers"); err != nil {
		return nil, err
	}
	return result, nil
}

// UploadImage sends a data URL payload and returns the generated filename.
func (c *Client) UploadImage(ctx context.Context, dataURL string) (string, error) {
	var result struct {
		Filename string `json:"filename"`
	}
	request := c.request(ctx).SetBody(map[string]string{"imageData": dataURL}).SetResult(&result)
	if err := c.do(request, http.MethodPost, "/api/upload/image"); err != nil {
		return "", err
	}
	return result.Filename, nil
}

// FetchImage returns the stored payload.
func (c *Client) FetchImage(ctx context.Context, filename string) ([]byte, error) {
	request := c.request(ctx).SetPathParam("filename", filename)
	response, err := c.send(request, http.MethodGet, "/api/image/{filename}")
	if err != nil {
		return nil, err
	}
	return response.Body(), nil
}

func (c *Client) DeleteImage(ctx context.Context, filename string) error {
	request := c.request(ctx).SetQueryParam("filename", filename)
	return c.do(request, http.MethodDelete, "/api/delete/image")
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorPayload{})
}

func (c *Client) do(request *resty.Request, method, path string) error {
	_, err := c.send(request, method, path)
	return err
}

func (c *Client) send(request *resty.Request, method, path string) (*resty.Response, error) {
	response, err := request.Execute(method, path)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if response.IsError() {
		apiErr := &APIError{StatusCode: response.StatusCode(), Message: response.Status()}
		if payload, ok := response.Error().(*errorPayload); ok && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		c.logger.Debug("api request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	return response, nil
}
