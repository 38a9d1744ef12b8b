package market

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/unihub-app/unihub-go/internal/api"
	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
)

type doer interface {
	Do(ctx context.Context, method string, path string, body any) (*api.Response, error)
}

// QuoteSource fetches live stock quotes from the backend.
// The payload is parsed defensively: anything that is not the expected
// array degrades to an empty snapshot instead of an error.
type QuoteSource struct {
	client doer
	logger logger.Logger
}

func NewQuoteSource(client doer, log logger.Logger) *QuoteSource {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &QuoteSource{
		client: client,
		logger: log,
	}
}

func (s *QuoteSource) Fetch(ctx context.Context) ([]models.Quote, error) {
	resp, err := s.client.Do(ctx, http.MethodGet, "/stocks", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("stocks request failed with status %d", resp.StatusCode)
	}

	return s.parse(resp.Body), nil
}

func (s *QuoteSource) parse(body []byte) []models.Quote {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		s.logger.Warn("Stocks payload is not an array, treating as empty")
		return []models.Quote{}
	}

	items := parsed.Array()
	quotes := make([]models.Quote, 0, len(items))

	for _, item := range items {
		if !item.IsObject() {
			continue
		}

		symbol := item.Get("symbol").String()
		if symbol == "" {
			continue
		}

		quotes = append(quotes, models.Quote{
			ID:           item.Get("id").Int(),
			Symbol:       symbol,
			Name:         item.Get("name").String(),
			Price:        decimal.NewFromFloat(item.Get("price").Float()),
			Change:       decimal.NewFromFloat(item.Get("change").Float()),
			ChangeAmount: decimal.NewFromFloat(item.Get("change_amount").Float()),
			Volume:       item.Get("volume").String(),
		})
	}

	return quotes
}
