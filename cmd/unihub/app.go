package main

import (
	"context"
	"fmt"

	"github.com/unihub-app/unihub-go/internal/api"
	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/market"
	"github.com/unihub-app/unihub-go/internal/models"
	"github.com/unihub-app/unihub-go/internal/service/notifications"
	"github.com/unihub-app/unihub-go/internal/session"
)

// ClientApp wires the client core together: credential store, session
// persistence, authenticated API client and the quote distributor
type ClientApp struct {
	API           *api.Client
	Distributor   *market.Distributor
	Notifications *notifications.Service

	creds  *session.Credentials
	logger logger.Logger
}

func NewClientApp(ctx context.Context, c *Config) (*ClientApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Credential store and durable session slot
	creds := session.NewCredentials()
	store := session.NewFileStore(c.SessionFile)

	// Authenticated API client with coordinated refresh
	client, err := api.NewClient(api.Config{
		BaseURL:     c.APIAddress,
		Credentials: creds,
		Store:       store,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating api client. Err: %w", err)
	}

	// Resume the previous session if a live record exists
	if !session.Restore(ctx, store, creds, log) {
		log.Info("Starting unauthenticated, log in to access protected screens")
	}

	// Quote feed distributor
	quotes := market.NewQuoteSource(client, log)
	distributor := market.NewDistributor(quotes, c.PollInterval, log)

	return &ClientApp{
		API:           client,
		Distributor:   distributor,
		Notifications: notifications.NewService(client, log),
		creds:         creds,
		logger:        log,
	}, nil
}

// Run subscribes to the quote feed and blocks until the context is
// cancelled, then tears the distributor down
func (a *ClientApp) Run(ctx context.Context) error {
	if a.creds.Authenticated() {
		count, err := a.Notifications.UnreadCount(ctx, a.creds.UserID())
		if err != nil {
			a.logger.Warn("Failed to get unread count", "error", err)
		} else {
			a.logger.Info("Unread notifications", "count", count)
		}
	}

	unsubscribe := a.Distributor.Subscribe(market.Listener{
		OnUpdate: func(quotes []models.Quote) {
			for _, q := range quotes {
				a.logger.Info("Quote",
					"symbol", q.Symbol,
					"price", q.Price.StringFixed(2),
					"change", q.Change.StringFixed(2),
				)
			}
		},
		OnError: func(err error) {
			a.logger.Warn("Quote feed error", "error", err)
		},
	})
	defer unsubscribe()

	<-ctx.Done()

	a.Distributor.Destroy()
	a.logger.Info("Shut down")

	return nil
}
