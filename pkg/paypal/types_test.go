package paypal

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/enums"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(s string) Amount {
	return Amount{Currency: enums.CurrencyUSD, Value: dec(s)}
}

func itemizedRequest() SetExpressCheckoutRequest {
	itemTotal := usd("47.00")
	shipTotal := usd("10.00")
	taxTotal := usd("4.00")
	return SetExpressCheckoutRequest{
		InvoiceID:    "R100000001",
		ReturnURL:    "https://shop.example.com/paypal/confirm",
		CancelURL:    "https://shop.example.com/paypal/cancel",
		SolutionType: enums.SolutionTypeMark,
		LandingPage:  enums.LandingPageBilling,
		PaymentDetails: PaymentDetails{
			OrderTotal:    usd("61.00"),
			ItemTotal:     &itemTotal,
			ShippingTotal: &shipTotal,
			TaxTotal:      &taxTotal,
			Items: []PaymentDetailsItem{
				{Name: "Widget", Number: "WID-1", Quantity: 2, Amount: usd("20.00"), Category: ItemCategoryPhysical},
				{Name: "Promo (SAVE5)", Quantity: 1, Amount: usd("-5.00")},
			},
			ShipToAddress: &ShipToAddress{
				Name:            "Ada Lovelace",
				Street1:         "1 Analytical Way",
				CityName:        "London",
				StateOrProvince: "LDN",
				Country:         "GB",
				PostalCode:      "EC1",
			},
			ShippingMethod: "Shipping",
			PaymentAction:  PaymentActionSale,
		},
	}
}

func TestSetExpressCheckoutValues(t *testing.T) {
	t.Parallel()

	req := itemizedRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	v := req.values()
	want := map[string]string{
		"RETURNURL":                        "https://shop.example.com/paypal/confirm",
		"CANCELURL":                        "https://shop.example.com/paypal/cancel",
		"SOLUTIONTYPE":                     "Mark",
		"LANDINGPAGE":                      "Billing",
		"PAYMENTREQUEST_0_INVNUM":          "R100000001",
		"PAYMENTREQUEST_0_CURRENCYCODE":    "USD",
		"PAYMENTREQUEST_0_AMT":             "61.00",
		"PAYMENTREQUEST_0_ITEMAMT":         "47.00",
		"PAYMENTREQUEST_0_SHIPPINGAMT":     "10.00",
		"PAYMENTREQUEST_0_TAXAMT":          "4.00",
		"PAYMENTREQUEST_0_PAYMENTACTION":   "Sale",
		"PAYMENTREQUEST_0_SHIPTONAME":      "Ada Lovelace",
		"PAYMENTREQUEST_0_SHIPTOZIP":       "EC1",
		"L_PAYMENTREQUEST_0_NAME0":         "Widget",
		"L_PAYMENTREQUEST_0_NUMBER0":       "WID-1",
		"L_PAYMENTREQUEST_0_QTY0":          "2",
		"L_PAYMENTREQUEST_0_AMT0":          "20.00",
		"L_PAYMENTREQUEST_0_ITEMCATEGORY0": "Physical",
		"L_PAYMENTREQUEST_0_NAME1":         "Promo (SAVE5)",
		"L_PAYMENTREQUEST_0_AMT1":          "-5.00",
		"L_SHIPPINGOPTIONNAME0":            "Shipping",
		"L_SHIPPINGOPTIONISDEFAULT0":       "true",
	}
	for key, expected := range want {
		if got := v.Get(key); got != expected {
			t.Errorf("%s = %q, want %q", key, got, expected)
		}
	}
	if v.Get("HDRIMG") != "" {
		t.Error("HDRIMG must be absent when no logo is configured")
	}
	if v.Get("L_PAYMENTREQUEST_0_NUMBER1") != "" {
		t.Error("synthetic items must not carry a number")
	}
}

func TestSetExpressCheckoutValuesCollapsed(t *testing.T) {
	t.Parallel()

	req := SetExpressCheckoutRequest{
		InvoiceID:    "R100000001",
		ReturnURL:    "https://shop.example.com/paypal/confirm",
		CancelURL:    "https://shop.example.com/paypal/cancel",
		SolutionType: enums.SolutionTypeMark,
		LandingPage:  enums.LandingPageBilling,
		PaymentDetails: PaymentDetails{
			OrderTotal: usd("14.00"),
		},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	v := req.values()
	if v.Get("PAYMENTREQUEST_0_AMT") != "14.00" {
		t.Fatalf("order total = %q", v.Get("PAYMENTREQUEST_0_AMT"))
	}
	for _, key := range []string{
		"PAYMENTREQUEST_0_ITEMAMT",
		"PAYMENTREQUEST_0_SHIPPINGAMT",
		"PAYMENTREQUEST_0_TAXAMT",
		"PAYMENTREQUEST_0_PAYMENTACTION",
		"L_PAYMENTREQUEST_0_NAME0",
		"L_SHIPPINGOPTIONNAME0",
	} {
		if v.Get(key) != "" {
			t.Errorf("%s must be absent in a collapsed payload", key)
		}
	}
}

func TestSetExpressCheckoutValidateRejectsZeroItems(t *testing.T) {
	t.Parallel()

	req := itemizedRequest()
	req.PaymentDetails.Items = append(req.PaymentDetails.Items, PaymentDetailsItem{
		Name:     "Zero fee",
		Quantity: 1,
		Amount:   usd("0.00"),
	})
	err := req.Validate()
	if err == nil || !strings.Contains(err.Error(), "zero amounts") {
		t.Fatalf("err = %v, want zero-amount rejection", err)
	}
}

func TestSetExpressCheckoutValidateItemizedFieldsTravelTogether(t *testing.T) {
	t.Parallel()

	req := itemizedRequest()
	req.PaymentDetails.TaxTotal = nil
	if err := req.Validate(); err == nil {
		t.Fatal("itemized details without a tax total must fail validation")
	}

	collapsed := itemizedRequest()
	collapsed.PaymentDetails.ItemTotal = nil
	if err := collapsed.Validate(); err == nil {
		t.Fatal("items without an item total must fail validation")
	}
}

func TestRefundTransactionValues(t *testing.T) {
	t.Parallel()

	full := RefundTransactionRequest{TransactionID: "TXN-1", RefundType: RefundTypeFull}
	if err := full.Validate(); err != nil {
		t.Fatalf("Validate full: %v", err)
	}
	v := full.values()
	if v.Get("REFUNDTYPE") != "Full" || v.Get("AMT") != "" {
		t.Fatalf("full refund values = %v", v)
	}

	partial := RefundTransactionRequest{TransactionID: "TXN-1", RefundType: RefundTypePartial, Amount: usd("20.00")}
	if err := partial.Validate(); err != nil {
		t.Fatalf("Validate partial: %v", err)
	}
	v = partial.values()
	if v.Get("AMT") != "20.00" || v.Get("CURRENCYCODE") != "USD" {
		t.Fatalf("partial refund values = %v", v)
	}

	missing := RefundTransactionRequest{TransactionID: "TXN-1", RefundType: RefundTypePartial}
	if err := missing.Validate(); err == nil {
		t.Fatal("partial refund without an amount must fail validation")
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	body := "ACK=Failure&CORRELATIONID=abc123&L_ERRORCODE0=10415&L_SHORTMESSAGE0=Transaction+refused&L_LONGMESSAGE0=This+transaction+has+already+been+completed.&L_ERRORCODE1=10417&L_LONGMESSAGE1=Instruct+the+customer+to+retry."
	resp, err := parseResponse(body)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if resp.Success() {
		t.Fatal("failure ack must not report success")
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(resp.Errors))
	}
	if resp.Errors[0].Code != "10415" {
		t.Fatalf("first code = %q", resp.Errors[0].Code)
	}
	joined := resp.ErrorMessages()
	if joined != "This transaction has already been completed. Instruct the customer to retry." {
		t.Fatalf("joined messages = %q", joined)
	}

	ok, err := parseResponse("ACK=SuccessWithWarning&TOKEN=EC-123&PAYMENTINFO_0_TRANSACTIONID=TXN-9")
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if !ok.Success() || ok.Token != "EC-123" || ok.TransactionID != "TXN-9" {
		t.Fatalf("resp = %+v", ok)
	}
}
