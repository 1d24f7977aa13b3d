package weather

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
const DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// DefaultTimeout bounds the whole lookup. A commit must never wait on the
// weather longer than this.
const DefaultTimeout = 2 * time.Second

// Client queries OpenWeatherMap for the configured city.
type Client struct {
	baseURL string
	apiKey  string
	city    string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey, city string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		city:    city,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type currentWeatherBody struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// CurrentLabel fetches the current weather description. Non-200 answers
// degrade to LabelUnavailable; everything else that can go wrong (missing
// key, transport error, timeout, malformed body) degrades to LabelOffline.
func (c *Client) CurrentLabel(ctx context.Context) string {
	if c.apiKey == "" {
		return LabelOffline
	}

	q := url.Values{}
	q.Set("q", c.city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return LabelOffline
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "Weather lookup failed", "city", c.city, "error", err)
		return LabelOffline
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		slog.DebugContext(ctx, "Weather service answered non-200", "city", c.city, "status", res.StatusCode)
		return LabelUnavailable
	}

	var body currentWeatherBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return LabelOffline
	}
	if len(body.Weather) == 0 || body.Weather[0].Description == "" {
		return LabelOffline
	}
	return capitalize(body.Weather[0].Description)
}

// capitalize upper-cases the first rune and lower-cases the rest, the way
// the labels have always been stored.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
