package stripegw

import (
	stripe "github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/client"
)

// Gateway is the provider surface the integrity auditor and admin checks
// depend on. Tests substitute fakes.
type Gateway interface {
	GetSubscription(id string) (*stripe.Subscription, error)
	GetCustomer(id string) (*stripe.Customer, error)
}

// apiGateway is the Stripe SDK-backed implementation. The API client is
// constructed explicitly with its key and injected; there is no package-global
// key or client.
type apiGateway struct {
	api *client.API
}

// New returns a Gateway backed by the official Stripe SDK.
func New(apiKey string) Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &apiGateway{api: api}
}

func (g *apiGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	return g.api.Subscriptions.Get(id, nil)
}

func (g *apiGateway) GetCustomer(id string) (*stripe.Customer, error) {
	return g.api.Customers.Get(id, nil)
}
