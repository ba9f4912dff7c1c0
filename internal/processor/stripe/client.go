package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/subtracklabs/subtrack/internal/config"
	"github.com/subtracklabs/subtrack/internal/processor/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.stripe.com"

type Client struct {
	apiKey        string
	webhookSecret string
	apiVersion    string
	baseURL       string
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiKey:        strings.TrimSpace(cfg.StripeAPIKey),
		webhookSecret: strings.TrimSpace(cfg.StripeWebhookSecret),
		apiVersion:    strings.TrimSpace(cfg.StripeAPIVersion),
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		log:           log.Named("processor.stripe"),
	}
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	var out stripeCustomer
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+customerID, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) CreateCustomer(ctx context.Context, in domain.CreateCustomerInput) (*domain.Customer, error) {
	data := url.Values{}
	if in.Name != "" {
		data.Set("name", in.Name)
	}
	if in.Email != "" {
		data.Set("email", in.Email)
	}
	for k, v := range in.Metadata {
		data.Set("metadata["+k+"]", v)
	}

	var out stripeCustomer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", data, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, in domain.UpdateCustomerInput) (*domain.Customer, error) {
	data := url.Values{}
	if in.Email != "" {
		data.Set("email", in.Email)
	}
	if in.DefaultPaymentMethod != "" {
		data.Set("invoice_settings[default_payment_method]", in.DefaultPaymentMethod)
	}

	var out stripeCustomer
	if err := c.do(ctx, http.MethodPost, "/v1/customers/"+customerID, data, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) CreateSubscription(ctx context.Context, in domain.CreateSubscriptionInput) (*domain.Subscription, error) {
	data := url.Values{}
	data.Set("customer", in.CustomerID)
	data.Set("items[0][price]", in.PriceID)
	data.Set("payment_behavior", "default_incomplete")
	data.Add("expand[]", "latest_invoice.payment_intent")

	var out stripeSubscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions", data, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, in domain.UpdateSubscriptionInput) (*domain.Subscription, error) {
	data := url.Values{}
	if in.CancelAtPeriodEnd != nil {
		data.Set("cancel_at_period_end", strconv.FormatBool(*in.CancelAtPeriodEnd))
	}
	if in.DefaultPaymentMethod != "" {
		data.Set("default_payment_method", in.DefaultPaymentMethod)
	}

	var out stripeSubscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions/"+subscriptionID, data, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) ListInvoices(ctx context.Context, customerID string, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = 1
	}
	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("limit", strconv.Itoa(limit))

	var out stripeInvoiceList
	if err := c.do(ctx, http.MethodGet, "/v1/invoices?"+query.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}

	invoices := make([]domain.Invoice, 0, len(out.Data))
	for _, invoice := range out.Data {
		invoices = append(invoices, *invoice.toDomain())
	}
	return invoices, nil
}

func (c *Client) PayInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	var out stripeInvoice
	if err := c.do(ctx, http.MethodPost, "/v1/invoices/"+invoiceID+"/pay", url.Values{}, nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (*domain.SetupIntent, error) {
	data := url.Values{}
	data.Set("customer", customerID)
	data.Add("payment_method_types[]", "card")
	data.Set("usage", "off_session")

	var out stripeSetupIntent
	if err := c.do(ctx, http.MethodPost, "/v1/setup_intents", data, nil, &out); err != nil {
		return nil, err
	}
	return &domain.SetupIntent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

func (c *Client) CreateEphemeralKey(ctx context.Context, customerID string) (*domain.EphemeralKey, error) {
	data := url.Values{}
	data.Set("customer", customerID)

	headers := http.Header{}
	headers.Set("Stripe-Version", c.apiVersion)

	var out stripeEphemeralKey
	if err := c.do(ctx, http.MethodPost, "/v1/ephemeral_keys", data, headers, &out); err != nil {
		return nil, err
	}
	return &domain.EphemeralKey{ID: out.ID, Secret: out.Secret}, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, headers http.Header, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var wrapper struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Error.Message != "" {
		message = wrapper.Error.Message
	}

	return &domain.APIError{StatusCode: resp.StatusCode, Message: message}
}
