package paypal

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/enums"
)

// PaymentActionSale captures funds immediately on approval.
const PaymentActionSale = "Sale"

// ItemCategoryPhysical is the only item category the gateway sells.
const ItemCategoryPhysical = "Physical"

// Refund types accepted by RefundTransaction.
const (
	RefundTypeFull    = "Full"
	RefundTypePartial = "Partial"
)

// Amount pairs a monetary value with its ISO currency code.
type Amount struct {
	Currency enums.Currency
	Value    decimal.Decimal
}

func (a Amount) validate(field string) error {
	if !a.Currency.IsValid() {
		return fmt.Errorf("%s: invalid currency %q", field, a.Currency)
	}
	return nil
}

// PaymentDetailsItem is one line on the hosted-page order summary: a real
// line item or a synthetic entry for a promotion or fee adjustment.
type PaymentDetailsItem struct {
	Name     string
	Number   string
	Quantity int
	Amount   Amount
	Category string
}

// ShipToAddress is the shipping address projection shown on the hosted page.
type ShipToAddress struct {
	Name            string
	Street1         string
	Street2         string
	CityName        string
	StateOrProvince string
	Country         string
	PostalCode      string
}

// PaymentDetails is the totals block of a SetExpressCheckout request.
// OrderTotal is always present. The itemized fields travel together: they
// are either all set (non-zero item subtotal) or all absent (zero subtotal,
// which the processor renders as a single undifferentiated charge).
type PaymentDetails struct {
	OrderTotal     Amount
	ItemTotal      *Amount
	ShippingTotal  *Amount
	TaxTotal       *Amount
	ShipToAddress  *ShipToAddress
	Items          []PaymentDetailsItem
	ShippingMethod string
	PaymentAction  string
}

// Itemized reports whether the details carry the full eight-field breakdown.
func (d PaymentDetails) Itemized() bool {
	return d.ItemTotal != nil
}

func (d PaymentDetails) validate() error {
	if err := d.OrderTotal.validate("order total"); err != nil {
		return err
	}
	for i, item := range d.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d: name is required", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
		// The processor rejects zero-valued items outright, so a zero here
		// is a builder bug rather than a recoverable condition.
		if item.Amount.Value.IsZero() {
			return fmt.Errorf("item %d (%s): zero amounts are not accepted", i, item.Name)
		}
		if err := item.Amount.validate(fmt.Sprintf("item %d", i)); err != nil {
			return err
		}
	}
	if !d.Itemized() {
		if d.ShippingTotal != nil || d.TaxTotal != nil || len(d.Items) > 0 || d.ShipToAddress != nil {
			return fmt.Errorf("itemized fields require an item total")
		}
		return nil
	}
	if d.ShippingTotal == nil || d.TaxTotal == nil {
		return fmt.Errorf("itemized details require shipping and tax totals")
	}
	if d.PaymentAction == "" {
		return fmt.Errorf("itemized details require a payment action")
	}
	return nil
}

// SetExpressCheckoutRequest begins an express checkout for one order.
type SetExpressCheckoutRequest struct {
	InvoiceID      string
	ReturnURL      string
	CancelURL      string
	SolutionType   enums.SolutionType
	LandingPage    enums.LandingPage
	HeaderImageURL string
	PaymentDetails PaymentDetails
}

// Validate rejects malformed payloads before they reach the wire, so a bad
// request surfaces as a local error rather than a processor rejection.
func (r SetExpressCheckoutRequest) Validate() error {
	if strings.TrimSpace(r.InvoiceID) == "" {
		return fmt.Errorf("invoice id is required")
	}
	for name, raw := range map[string]string{
		"return url": r.ReturnURL,
		"cancel url": r.CancelURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	if !r.SolutionType.IsValid() {
		return fmt.Errorf("invalid solution type %q", r.SolutionType)
	}
	if !r.LandingPage.IsValid() {
		return fmt.Errorf("invalid landing page %q", r.LandingPage)
	}
	return r.PaymentDetails.validate()
}

func (r SetExpressCheckoutRequest) values() url.Values {
	v := url.Values{}
	v.Set("RETURNURL", r.ReturnURL)
	v.Set("CANCELURL", r.CancelURL)
	v.Set("SOLUTIONTYPE", r.SolutionType.String())
	v.Set("LANDINGPAGE", r.LandingPage.String())
	if r.HeaderImageURL != "" {
		v.Set("HDRIMG", r.HeaderImageURL)
	}

	d := r.PaymentDetails
	v.Set("PAYMENTREQUEST_0_INVNUM", r.InvoiceID)
	v.Set("PAYMENTREQUEST_0_CURRENCYCODE", d.OrderTotal.Currency.String())
	v.Set("PAYMENTREQUEST_0_AMT", formatAmount(d.OrderTotal.Value))
	if !d.Itemized() {
		return v
	}

	v.Set("PAYMENTREQUEST_0_ITEMAMT", formatAmount(d.ItemTotal.Value))
	v.Set("PAYMENTREQUEST_0_SHIPPINGAMT", formatAmount(d.ShippingTotal.Value))
	v.Set("PAYMENTREQUEST_0_TAXAMT", formatAmount(d.TaxTotal.Value))
	v.Set("PAYMENTREQUEST_0_PAYMENTACTION", d.PaymentAction)

	if addr := d.ShipToAddress; addr != nil {
		v.Set("PAYMENTREQUEST_0_SHIPTONAME", addr.Name)
		v.Set("PAYMENTREQUEST_0_SHIPTOSTREET", addr.Street1)
		if addr.Street2 != "" {
			v.Set("PAYMENTREQUEST_0_SHIPTOSTREET2", addr.Street2)
		}
		v.Set("PAYMENTREQUEST_0_SHIPTOCITY", addr.CityName)
		v.Set("PAYMENTREQUEST_0_SHIPTOSTATE", addr.StateOrProvince)
		v.Set("PAYMENTREQUEST_0_SHIPTOCOUNTRYCODE", addr.Country)
		v.Set("PAYMENTREQUEST_0_SHIPTOZIP", addr.PostalCode)
	}

	for i, item := range d.Items {
		suffix := strconv.Itoa(i)
		v.Set("L_PAYMENTREQUEST_0_NAME"+suffix, item.Name)
		if item.Number != "" {
			v.Set("L_PAYMENTREQUEST_0_NUMBER"+suffix, item.Number)
		}
		v.Set("L_PAYMENTREQUEST_0_QTY"+suffix, strconv.Itoa(item.Quantity))
		v.Set("L_PAYMENTREQUEST_0_AMT"+suffix, formatAmount(item.Amount.Value))
		if item.Category != "" {
			v.Set("L_PAYMENTREQUEST_0_ITEMCATEGORY"+suffix, item.Category)
		}
	}

	if d.ShippingMethod != "" {
		v.Set("L_SHIPPINGOPTIONNAME0", d.ShippingMethod)
		v.Set("L_SHIPPINGOPTIONISDEFAULT0", "true")
	}
	return v
}

// DoExpressCheckoutPaymentRequest captures a previously approved checkout.
type DoExpressCheckoutPaymentRequest struct {
	Token         string
	PayerID       string
	Amount        Amount
	PaymentAction string
}

// Validate checks the capture request fields.
func (r DoExpressCheckoutPaymentRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token is required")
	}
	if strings.TrimSpace(r.PayerID) == "" {
		return fmt.Errorf("payer id is required")
	}
	if r.Amount.Value.Sign() <= 0 {
		return fmt.Errorf("capture amount must be positive")
	}
	return r.Amount.validate("amount")
}

func (r DoExpressCheckoutPaymentRequest) values() url.Values {
	action := r.PaymentAction
	if action == "" {
		action = PaymentActionSale
	}
	v := url.Values{}
	v.Set("TOKEN", r.Token)
	v.Set("PAYERID", r.PayerID)
	v.Set("PAYMENTREQUEST_0_AMT", formatAmount(r.Amount.Value))
	v.Set("PAYMENTREQUEST_0_CURRENCYCODE", r.Amount.Currency.String())
	v.Set("PAYMENTREQUEST_0_PAYMENTACTION", action)
	return v
}

// RefundTransactionRequest credits a captured transaction, in part or full.
type RefundTransactionRequest struct {
	TransactionID string
	RefundType    string
	Amount        Amount
}

// Validate checks the refund request fields.
func (r RefundTransactionRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return fmt.Errorf("transaction id is required")
	}
	switch r.RefundType {
	case RefundTypeFull:
	case RefundTypePartial:
		if r.Amount.Value.Sign() <= 0 {
			return fmt.Errorf("partial refunds require a positive amount")
		}
		if err := r.Amount.validate("amount"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid refund type %q", r.RefundType)
	}
	return nil
}

func (r RefundTransactionRequest) values() url.Values {
	v := url.Values{}
	v.Set("TRANSACTIONID", r.TransactionID)
	v.Set("REFUNDTYPE", r.RefundType)
	if r.RefundType == RefundTypePartial {
		v.Set("AMT", formatAmount(r.Amount.Value))
		v.Set("CURRENCYCODE", r.Amount.Currency.String())
	}
	return v
}

// ErrorDetail is one processor-reported failure reason.
type ErrorDetail struct {
	Code         string
	ShortMessage string
	LongMessage  string
}

// Response is the decoded NVP reply shared by all operations.
type Response struct {
	Ack                 string
	Token               string
	CorrelationID       string
	TransactionID       string
	RefundTransactionID string
	Errors              []ErrorDetail
	Raw                 url.Values
}

// Success reports whether the processor acknowledged the request.
func (r *Response) Success() bool {
	if r == nil {
		return false
	}
	return r.Ack == "Success" || r.Ack == "SuccessWithWarning"
}

// ErrorMessages joins the processor's long messages for user display.
func (r *Response) ErrorMessages() string {
	if r == nil {
		return ""
	}
	messages := make([]string, 0, len(r.Errors))
	for _, detail := range r.Errors {
		msg := detail.LongMessage
		if msg == "" {
			msg = detail.ShortMessage
		}
		if msg != "" {
			messages = append(messages, msg)
		}
	}
	return strings.Join(messages, " ")
}

func parseResponse(body string) (*Response, error) {
	raw, err := url.ParseQuery(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("decoding nvp response: %w", err)
	}

	resp := &Response{
		Ack:                 raw.Get("ACK"),
		Token:               raw.Get("TOKEN"),
		CorrelationID:       raw.Get("CORRELATIONID"),
		TransactionID:       raw.Get("PAYMENTINFO_0_TRANSACTIONID"),
		RefundTransactionID: raw.Get("REFUNDTRANSACTIONID"),
		Raw:                 raw,
	}
	for i := 0; ; i++ {
		code := raw.Get("L_ERRORCODE" + strconv.Itoa(i))
		if code == "" {
			break
		}
		resp.Errors = append(resp.Errors, ErrorDetail{
			Code:         code,
			ShortMessage: raw.Get("L_SHORTMESSAGE" + strconv.Itoa(i)),
			LongMessage:  raw.Get("L_LONGMESSAGE" + strconv.Itoa(i)),
		})
	}
	return resp, nil
}

func formatAmount(v decimal.Decimal) string {
	return v.StringFixed(2)
}
