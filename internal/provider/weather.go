package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/item"
)

// maxWeatherBody caps how much of a weather response is read.
const maxWeatherBody = 1 << 20

// Weather fetches current conditions from a JSON endpoint:
//
//	{"description": "Partly cloudy", "temperature": 63.5, "icon_url": "…"}
//
// At most one item is delivered per fetch; any failure delivers empty.
type Weather struct {
	sink     Sink
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewWeather creates a weather provider against endpoint. A zero timeout
// means the default.
func NewWeather(sink Sink, endpoint string, timeout time.Duration, logger *zap.Logger) *Weather {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Weather{
		sink:     sink,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   namedLogger(logger, "weather"),
	}
}

// RequestDataFetch implements suggest.DataProvider.
func (w *Weather) RequestDataFetch() {
	go w.fetch()
}

func (w *Weather) fetch() {
	conditions, err := w.current()
	if err != nil {
		w.logger.Warn("weather fetch failed", zap.String("endpoint", w.endpoint), zap.Error(err))
		w.sink.SetWeatherItems(nil)
		return
	}
	w.sink.SetWeatherItems([]*item.WeatherItem{conditions})
}

func (w *Weather) current() (*item.WeatherItem, error) {
	req, err := http.NewRequest(http.MethodGet, w.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWeatherBody))
	if err != nil {
		return nil, err
	}

	description := gjson.GetBytes(body, "description").String()
	if description == "" {
		return nil, errors.New("response has no description")
	}

	return item.NewWeatherItem(
		description,
		gjson.GetBytes(body, "temperature").Float(),
		gjson.GetBytes(body, "icon_url").String(),
	), nil
}
