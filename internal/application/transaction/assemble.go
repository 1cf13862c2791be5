package transaction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	coretx "3tcapital/taxcore/internal/core/transaction"
)

// Assemble validates req and replays it into builder calls in declaration
// order: header fields, document parameters, addresses and override, then
// each line followed by its line-scoped settings. The builder's first usage
// error is returned unchanged.
func Assemble(svc coretx.Service, req Request) (*coretx.Builder, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	b := coretx.NewBuilder(svc, req.CompanyCode, req.Type, req.CustomerCode)

	if req.Code != "" {
		b.WithTransactionCode(req.Code)
	}
	if req.Commit {
		b.WithCommit()
	}
	if req.Diagnostics {
		b.WithDiagnostics()
	}
	if req.Discount != nil {
		b.WithDiscountAmount(*req.Discount)
	}
	if req.BusinessIdentificationNo != "" {
		b.WithBusinessIdentificationNo(req.BusinessIdentificationNo)
	}
	if req.EntityUseCode != "" {
		b.WithEntityUseCode(req.EntityUseCode)
	}
	if req.PurchaseOrderNo != "" {
		b.WithPurchaseOrderNo(req.PurchaseOrderNo)
	}
	if req.ReferenceCode != "" {
		b.WithReferenceCode(req.ReferenceCode)
	}
	if req.CurrencyCode != "" {
		b.WithCurrencyCode(req.CurrencyCode)
	}
	if req.ReportingLocationCode != "" {
		b.WithReportingLocationCode(req.ReportingLocationCode)
	}
	if req.SellerIsImporterOfRecord {
		b.WithSellerIsImporterOfRecord()
	}
	if req.ExchangeRate != nil {
		effective, err := parseDate("exchangeRate.effectiveDate", req.ExchangeRate.EffectiveDate)
		if err != nil {
			return nil, err
		}
		b.WithExchangeRate(req.ExchangeRate.Rate, effective)
	}
	for _, p := range req.Parameters {
		b.WithParameter(p.Name, p.Value)
	}
	for _, a := range req.Addresses {
		if a.geocoded() {
			b.WithLatLong(a.Type, *a.Latitude, *a.Longitude)
			continue
		}
		b.WithAddress(a.Type, a.Line1, a.Line2, a.Line3, a.City, a.Region, a.PostalCode, a.Country)
	}
	if o := req.TaxOverride; o != nil {
		taxDate, err := parseDate("taxOverride.taxDate", o.TaxDate)
		if err != nil {
			return nil, err
		}
		b.WithTaxOverride(o.Type, o.Reason, o.TaxAmount, taxDate)
	}

	for i, line := range req.Lines {
		if err := appendLine(b, i, line); err != nil {
			return nil, err
		}
	}

	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func appendLine(b *coretx.Builder, i int, line Line) error {
	switch line.kind() {
	case LineKindExempt:
		b.WithExemptLine(line.Amount, line.ItemCode, line.ExemptionCode)
	case LineKindAddress:
		a := line.Address
		b.WithSeparateAddressLine(line.Amount, a.Type, a.Line1, a.Line2, a.Line3, a.City, a.Region, a.PostalCode, a.Country)
	default:
		qty := decimal.NewFromInt(1)
		if line.Quantity != nil {
			qty = *line.Quantity
		}
		b.WithLine(line.Amount, qty, line.ItemCode, line.TaxCode)
	}

	if line.Description != "" {
		b.WithLineDescription(line.Description)
	}
	if line.Discounted != nil {
		b.WithItemDiscount(*line.Discounted)
	}
	if line.TaxIncluded {
		b.WithLineTaxIncluded()
	}
	if line.Ref1 != "" || line.Ref2 != "" {
		b.WithLineCustomFields(line.Ref1, line.Ref2)
	}
	for _, p := range line.Parameters {
		b.WithLineParameter(p.Name, p.Value)
	}
	for _, a := range line.Addresses {
		b.WithLineAddress(a.Type, a.Line1, a.Line2, a.Line3, a.City, a.Region, a.PostalCode, a.Country)
	}
	if o := line.TaxOverride; o != nil {
		taxDate, err := parseDate(fmt.Sprintf("lines[%d].taxOverride.taxDate", i), o.TaxDate)
		if err != nil {
			return err
		}
		b.WithLineTaxOverride(o.Type, o.Reason, o.TaxAmount, taxDate)
	}
	return nil
}

// parseDate turns an optional calendar date into a time; "" is the zero time.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{Fields: map[string]string{field: "datetime=" + dateLayout}}
	}
	return t, nil
}
