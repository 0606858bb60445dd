package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type fakeSessionAPI struct {
	newParams   []*stripe.CheckoutSessionParams
	expired     []string
	newErr      error
	expireErr   error
	sessionID   string
	sessionURL  string
	expireCalls int
}

func (f *fakeSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.newParams = append(f.newParams, params)
	if f.newErr != nil {
		return nil, f.newErr
	}
	return &stripe.CheckoutSession{ID: f.sessionID, URL: f.sessionURL}, nil
}

func (f *fakeSessionAPI) Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error) {
	f.expireCalls++
	if f.expireErr != nil {
		return nil, f.expireErr
	}
	f.expired = append(f.expired, id)
	return &stripe.CheckoutSession{ID: id}, nil
}

func TestCreateSessionBuildsPaymentParams(t *testing.T) {
	api := &fakeSessionAPI{sessionID: "cs_test_1", sessionURL: "https://checkout.stripe.com/c/pay/cs_test_1"}
	gw := newCheckoutGateway(api, 3, time.Minute)

	sess, err := gw.CreateSession(context.Background(), SessionRequest{
		Currency:          "USD",
		Items:             []LineItem{{Name: "Book", Description: "Paperback", UnitAmount: 1000, Quantity: 2}},
		CustomerEmail:     "buyer@example.com",
		ClientReferenceID: "user-1",
		SuccessURL:        "https://shop.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         "https://shop.example.com/checkout/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)

	require.Len(t, api.newParams, 1)
	params := api.newParams[0]
	assert.Equal(t, "payment", stripe.StringValue(params.Mode))
	assert.Equal(t, "user-1", stripe.StringValue(params.ClientReferenceID))
	assert.Equal(t, "buyer@example.com", stripe.StringValue(params.CustomerEmail))
	require.Len(t, params.LineItems, 1)
	line := params.LineItems[0]
	assert.Equal(t, int64(1000), stripe.Int64Value(line.PriceData.UnitAmount))
	assert.Equal(t, int64(2), stripe.Int64Value(line.Quantity))
	assert.Equal(t, "usd", stripe.StringValue(line.PriceData.Currency))
	assert.Equal(t, "Book", stripe.StringValue(line.PriceData.ProductData.Name))
	assert.NotNil(t, params.Context)
}

func TestCreateSessionRequiresItems(t *testing.T) {
	api := &fakeSessionAPI{}
	gw := newCheckoutGateway(api, 3, time.Minute)

	_, err := gw.CreateSession(context.Background(), SessionRequest{})
	require.Error(t, err)
	assert.Empty(t, api.newParams)
}

func TestExpireSessionMapsInvalidRequest(t *testing.T) {
	api := &fakeSessionAPI{expireErr: &stripe.Error{
		Type:           stripe.ErrorTypeInvalidRequest,
		HTTPStatusCode: http.StatusBadRequest,
		Msg:            "Only Checkout Sessions with a status in [\"open\"] can be expired.",
	}}
	gw := newCheckoutGateway(api, 1, time.Minute)

	err := gw.ExpireSession(context.Background(), "cs_done")
	require.ErrorIs(t, err, ErrSessionNotExpirable)

	// client errors must not trip the breaker
	api.expireErr = nil
	require.NoError(t, gw.ExpireSession(context.Background(), "cs_open"))
	assert.Equal(t, []string{"cs_open"}, api.expired)
}

func TestExpireSessionKeepsAuthFailuresDistinct(t *testing.T) {
	cases := map[string]*stripe.Error{
		"bad key":        {Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusUnauthorized, Msg: "Invalid API Key provided"},
		"forbidden":      {Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusForbidden},
		"rate limited":   {Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: http.StatusTooManyRequests},
		"server failure": {Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusInternalServerError},
	}
	for name, stripeErr := range cases {
		t.Run(name, func(t *testing.T) {
			gw := newCheckoutGateway(&fakeSessionAPI{expireErr: stripeErr}, 5, time.Minute)
			err := gw.ExpireSession(context.Background(), "cs_live")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrSessionNotExpirable))
		})
	}

	gw := newCheckoutGateway(&fakeSessionAPI{expireErr: &stripe.Error{
		Type:           stripe.ErrorTypeInvalidRequest,
		HTTPStatusCode: http.StatusNotFound,
		Msg:            "No such checkout.session",
	}}, 5, time.Minute)
	require.ErrorIs(t, gw.ExpireSession(context.Background(), "cs_gone"), ErrSessionNotExpirable)
}

func TestBreakerOpensOnUpstreamFailures(t *testing.T) {
	api := &fakeSessionAPI{newErr: &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusInternalServerError}}
	gw := newCheckoutGateway(api, 2, time.Minute)
	req := SessionRequest{Items: []LineItem{{Name: "Book", UnitAmount: 100, Quantity: 1}}}

	for i := 0; i < 2; i++ {
		_, err := gw.CreateSession(context.Background(), req)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrGatewayUnavailable))
	}

	_, err := gw.CreateSession(context.Background(), req)
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Len(t, api.newParams, 2)
}

func TestConstructEventRequiresSecret(t *testing.T) {
	var c *Client
	_, err := c.ConstructEvent([]byte(`{}`), "t=1,v1=abc")
	require.Error(t, err)
}

func TestConstructEventVerifiesSignature(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_test", Env: "test"}, nil)
	require.NoError(t, err)

	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","api_version":"2020-08-27","data":{"object":{}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	event, err := client.ConstructEvent(payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	_, err = client.ConstructEvent(payload, forged.Header)
	require.Error(t, err)
}

func TestNewClientValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StripeConfig
	}{
		{"live key in test", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec", Env: "test"}},
		{"test key in live", config.StripeConfig{APIKey: "rk_test_123", Secret: "whsec", Env: "live"}},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec", Env: "staging"}},
		{"missing secret", config.StripeConfig{APIKey: "sk_test_123", Env: "test"}},
		{"missing key", config.StripeConfig{Secret: "whsec", Env: "test"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.cfg, nil)
			require.Error(t, err)
		})
	}

	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec", Env: " LIVE "}, nil)
	require.NoError(t, err)
	assert.Equal(t, liveEnv, client.Environment())
}
