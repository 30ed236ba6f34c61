package paypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelarsolis/expresspay-backend/pkg/config"
	pkgerrors "github.com/avelarsolis/expresspay-backend/pkg/errors"
	"github.com/avelarsolis/expresspay-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	apiVersion = "124.0"
)

var (
	errCredentialsRequired = errors.New("paypal api user, password, and signature are required")
	errInvalidPayPalEnv    = fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("paypal logger is required")
)

var apiEndpoints = map[string]string{
	sandboxEnv:    "https://api-3t.sandbox.paypal.com/nvp",
	productionEnv: "https://api-3t.paypal.com/nvp",
}

var redirectBases = map[string]string{
	sandboxEnv:    "https://www.sandbox.paypal.com/cgi-bin/webscr",
	productionEnv: "https://www.paypal.com/cgi-bin/webscr",
}

// RedirectOptions tunes the hosted-page redirect URL.
type RedirectOptions struct {
	// UserAction "commit" shows a final "Pay Now" button on the hosted page
	// so the shopper does not return to a separate merchant confirm step.
	UserAction string
}

// Client exposes the express-checkout NVP operations with centralized auth,
// logging, and error mapping.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	redirectBase string
	user         string
	password     string
	signature    string
	environment  string
	logger       *logger.Logger
}

// NewClient initializes the NVP wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return nil, err
	}

	user := strings.TrimSpace(cfg.User)
	password := strings.TrimSpace(cfg.Password)
	signature := strings.TrimSpace(cfg.Signature)
	if user == "" || password == "" || signature == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		endpoint:     apiEndpoints[env],
		redirectBase: redirectBases[env],
		user:         user,
		password:     password,
		signature:    signature,
		environment:  env,
		logger:       logg,
	}

	logg.Info(ctx, "paypal client initialized")
	return c, nil
}

// Environment reports the normalized processor environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SetExpressCheckout opens a checkout session and returns the redirect token.
func (c *Client) SetExpressCheckout(ctx context.Context, req SetExpressCheckoutRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid set express checkout request")
	}
	c.log(ctx, "request", "set_express_checkout", map[string]any{
		"invoice_id": req.InvoiceID,
		"amount":     formatAmount(req.PaymentDetails.OrderTotal.Value),
		"currency":   req.PaymentDetails.OrderTotal.Currency.String(),
		"itemized":   req.PaymentDetails.Itemized(),
	})

	resp, err := c.call(ctx, "SetExpressCheckout", req.values())
	if err != nil {
		return resp, err
	}
	c.log(ctx, "response", "set_express_checkout", map[string]any{"token": resp.Token})
	return resp, nil
}

// DoExpressCheckoutPayment captures an approved checkout.
func (c *Client) DoExpressCheckoutPayment(ctx context.Context, req DoExpressCheckoutPaymentRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capture request")
	}
	c.log(ctx, "request", "do_express_checkout_payment", map[string]any{
		"token":    req.Token,
		"amount":   formatAmount(req.Amount.Value),
		"currency": req.Amount.Currency.String(),
	})

	resp, err := c.call(ctx, "DoExpressCheckoutPayment", req.values())
	if err != nil {
		return resp, err
	}
	c.log(ctx, "response", "do_express_checkout_payment", map[string]any{
		"transaction_id": resp.TransactionID,
	})
	return resp, nil
}

// RefundTransaction credits a captured transaction.
func (c *Client) RefundTransaction(ctx context.Context, req RefundTransactionRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund request")
	}
	c.log(ctx, "request", "refund_transaction", map[string]any{
		"transaction_id": req.TransactionID,
		"refund_type":    req.RefundType,
	})

	resp, err := c.call(ctx, "RefundTransaction", req.values())
	if err != nil {
		return resp, err
	}
	c.log(ctx, "response", "refund_transaction", map[string]any{
		"refund_transaction_id": resp.RefundTransactionID,
	})
	return resp, nil
}

// ExpressCheckoutURL builds the hosted-page redirect for an opened session.
func (c *Client) ExpressCheckoutURL(resp *Response, opts RedirectOptions) (string, error) {
	if resp == nil || strings.TrimSpace(resp.Token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout response is missing a redirect token")
	}
	query := url.Values{}
	query.Set("cmd", "_express-checkout")
	query.Set("token", resp.Token)
	if opts.UserAction != "" {
		query.Set("useraction", opts.UserAction)
	}
	return c.redirectBase + "?" + query.Encode(), nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (*Response, error) {
	form := url.Values{}
	for key, vals := range params {
		form[key] = vals
	}
	form.Set("METHOD", method)
	form.Set("VERSION", apiVersion)
	form.Set("USER", c.user)
	form.Set("PWD", c.password)
	form.Set("SIGNATURE", c.signature)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building nvp request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(ctx, "error", method, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeConnection, err, "contacting payment processor")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConnection, err, "reading processor response")
	}

	resp, err := parseResponse(string(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed processor response")
	}

	if !resp.Success() {
		c.log(ctx, "error", method, map[string]any{
			"ack":            resp.Ack,
			"correlation_id": resp.CorrelationID,
			"errors":         resp.ErrorMessages(),
		})
		rejection := pkgerrors.New(pkgerrors.CodeProcessorRejected, resp.ErrorMessages())
		return resp, rejection.WithDetails(errorCodes(resp.Errors))
	}
	return resp, nil
}

func errorCodes(details []ErrorDetail) []string {
	codes := make([]string, 0, len(details))
	for _, detail := range details {
		codes = append(codes, detail.Code)
	}
	return codes
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	merged := map[string]any{"processor": "paypal", "operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logger.WithFields(ctx, merged)
	switch stage {
	case "error":
		c.logger.Warn(ctx, "paypal."+operation+".failed")
	default:
		c.logger.Info(ctx, "paypal."+operation+"."+stage)
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidPayPalEnv
	}
}
