package checkout

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelarsolis/expresspay-backend/pkg/db/models"
	"github.com/avelarsolis/expresspay-backend/pkg/enums"
	"github.com/avelarsolis/expresspay-backend/pkg/paypal"
)

// MethodPreferences are the hosted-page knobs resolved from a payment method
// row, with gateway defaults filled in.
type MethodPreferences struct {
	SolutionType enums.SolutionType
	LandingPage  enums.LandingPage
	LogoURL      string
}

// ResolveMethodPreferences applies defaults for any preference the merchant
// left unset: guest-friendly Mark flow on the billing landing page, no logo.
func ResolveMethodPreferences(method *models.PaymentMethod) MethodPreferences {
	prefs := MethodPreferences{
		SolutionType: enums.SolutionTypeMark,
		LandingPage:  enums.LandingPageBilling,
	}
	if method == nil {
		return prefs
	}
	if method.PreferredSolutionType != nil && method.PreferredSolutionType.IsValid() {
		prefs.SolutionType = *method.PreferredSolutionType
	}
	if method.PreferredLandingPage != nil && method.PreferredLandingPage.IsValid() {
		prefs.LandingPage = *method.PreferredLandingPage
	}
	if method.PreferredLogoURL != nil {
		prefs.LogoURL = *method.PreferredLogoURL
	}
	return prefs
}

// CallbackURLs carries the storefront return/cancel URLs for one begin call.
type CallbackURLs struct {
	ReturnURL       string
	CancelURL       string
	PaymentMethodID uuid.UUID
}

// BuildExpressCheckoutRequest projects an order into the processor's
// SetExpressCheckout payload.
//
// The item list is the order's line items plus one synthetic entry per
// eligible non-tax, non-shipping adjustment (promotions appear as negative
// entries). Zero-valued entries are dropped unconditionally: the processor
// rejects them. When the derived item subtotal is zero the itemized fields
// are omitted entirely and only the order total travels.
func BuildExpressCheckoutRequest(order *models.Order, prefs MethodPreferences, urls CallbackURLs, shippingLabel string) paypal.SetExpressCheckoutRequest {
	details := paypal.PaymentDetails{
		OrderTotal: paypal.Amount{Currency: order.Currency, Value: order.Total},
	}

	// The item subtotal is derived from the discounted shipment sum, but the
	// shipping line shown to the shopper carries the undiscounted ship total;
	// the two diverge whenever a shipping promotion applies.
	itemSubtotal := order.ItemSubtotal()
	if !itemSubtotal.IsZero() {
		details.ItemTotal = &paypal.Amount{Currency: order.Currency, Value: itemSubtotal}
		details.ShippingTotal = &paypal.Amount{Currency: order.Currency, Value: order.ShipTotal}
		details.TaxTotal = &paypal.Amount{Currency: order.Currency, Value: order.AdditionalTaxTotal}
		details.Items = itemDescriptors(order)
		details.ShipToAddress = shipToAddress(order)
		details.ShippingMethod = shippingLabel
		details.PaymentAction = paypal.PaymentActionSale
	}

	return paypal.SetExpressCheckoutRequest{
		InvoiceID:      order.Number,
		ReturnURL:      decorateReturnURL(urls.ReturnURL, urls.PaymentMethodID),
		CancelURL:      urls.CancelURL,
		SolutionType:   prefs.SolutionType,
		LandingPage:    prefs.LandingPage,
		HeaderImageURL: prefs.LogoURL,
		PaymentDetails: details,
	}
}

func itemDescriptors(order *models.Order) []paypal.PaymentDetailsItem {
	items := make([]paypal.PaymentDetailsItem, 0, len(order.LineItems)+len(order.Adjustments))
	for _, li := range order.LineItems {
		items = append(items, paypal.PaymentDetailsItem{
			Name:     li.Name,
			Number:   li.SKU,
			Quantity: li.Quantity,
			Amount:   paypal.Amount{Currency: order.Currency, Value: li.Price},
			Category: paypal.ItemCategoryPhysical,
		})
	}
	for _, adj := range order.Adjustments {
		if !adj.Eligible || adj.Tax || adj.Shipping {
			continue
		}
		items = append(items, paypal.PaymentDetailsItem{
			Name:     adj.Label,
			Quantity: 1,
			Amount:   paypal.Amount{Currency: order.Currency, Value: adj.Amount},
		})
	}
	return dropZeroAmounts(items)
}

func dropZeroAmounts(items []paypal.PaymentDetailsItem) []paypal.PaymentDetailsItem {
	kept := items[:0]
	for _, item := range items {
		if item.Amount.Value.Equal(decimal.Zero) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func shipToAddress(order *models.Order) *paypal.ShipToAddress {
	addr := order.ShipAddress
	if addr == nil {
		return nil
	}
	projected := &paypal.ShipToAddress{
		Name:            addr.FullName(),
		Street1:         addr.Street1,
		CityName:        addr.City,
		StateOrProvince: addr.State,
		Country:         addr.Country,
		PostalCode:      addr.PostalCode,
	}
	if addr.Street2 != nil {
		projected.Street2 = *addr.Street2
	}
	return projected
}

// decorateReturnURL tags the callback with the initiating payment method and
// suppresses analytics session overrides on the round trip.
func decorateReturnURL(raw string, methodID uuid.UUID) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	query.Set("payment_method_id", methodID.String())
	query.Set("utm_nooverride", "1")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
