package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Builder assembles a Document through chained calls and submits it to a Service.
//
// Line-scoped methods (WithLineDescription, WithLineParameter, ...) always act on the
// most recently appended line. The first usage error stops the chain: it is recorded,
// every later call becomes a no-op, and the terminal methods return it.
//
// A Builder is single-use and must not be shared between goroutines.
type Builder struct {
	svc        Service
	model      Document
	lineNumber int
	err        error
}

// NewBuilder starts a new document for the given company, type and customer.
// No network call happens until Create.
func NewBuilder(svc Service, companyCode string, typ DocumentType, customerCode string) *Builder {
	return &Builder{
		svc:        svc,
		lineNumber: 1,
		model: Document{
			CompanyCode:  companyCode,
			CustomerCode: customerCode,
			Date:         time.Now(),
			Type:         typ,
			Lines:        []LineItem{},
		},
	}
}

// WithCommit marks the transaction to be committed on creation.
func (b *Builder) WithCommit() *Builder {
	return b.apply(func(d *Document) { d.Commit = true })
}

// WithDiagnostics asks the service for diagnostic output.
func (b *Builder) WithDiagnostics() *Builder {
	return b.apply(func(d *Document) { d.DebugLevel = DebugLevelDiagnostic })
}

// WithDiscountAmount sets the document-level discount.
func (b *Builder) WithDiscountAmount(discount decimal.Decimal) *Builder {
	return b.apply(func(d *Document) { d.Discount = &discount })
}

// WithTransactionCode sets the caller-chosen transaction code.
func (b *Builder) WithTransactionCode(code string) *Builder {
	return b.apply(func(d *Document) { d.Code = code })
}

// WithType replaces the document type given to NewBuilder.
func (b *Builder) WithType(typ DocumentType) *Builder {
	return b.apply(func(d *Document) { d.Type = typ })
}

// WithBusinessIdentificationNo sets the customer's VAT business identification number.
func (b *Builder) WithBusinessIdentificationNo(no string) *Builder {
	return b.apply(func(d *Document) { d.BusinessIdentificationNo = no })
}

// WithEntityUseCode sets the customer usage type.
func (b *Builder) WithEntityUseCode(code string) *Builder {
	return b.apply(func(d *Document) { d.EntityUseCode = code })
}

// WithPurchaseOrderNo sets the purchase order number.
func (b *Builder) WithPurchaseOrderNo(no string) *Builder {
	return b.apply(func(d *Document) { d.PurchaseOrderNo = no })
}

// WithReferenceCode sets the customer-provided reference code.
func (b *Builder) WithReferenceCode(code string) *Builder {
	return b.apply(func(d *Document) { d.ReferenceCode = code })
}

// WithCurrencyCode sets the three-character ISO-4217 currency code.
func (b *Builder) WithCurrencyCode(code string) *Builder {
	return b.apply(func(d *Document) { d.CurrencyCode = code })
}

// WithReportingLocationCode sets the location code reported to the tax authority.
func (b *Builder) WithReportingLocationCode(code string) *Builder {
	return b.apply(func(d *Document) { d.ReportingLocationCode = code })
}

// WithSellerIsImporterOfRecord flags the seller as importer of record.
func (b *Builder) WithSellerIsImporterOfRecord() *Builder {
	return b.apply(func(d *Document) { d.IsSellerImporterOfRecord = true })
}

// WithExchangeRate sets the exchange rate. A zero effectiveDate leaves the
// effective date out of the document.
func (b *Builder) WithExchangeRate(rate decimal.Decimal, effectiveDate time.Time) *Builder {
	return b.apply(func(d *Document) {
		d.ExchangeRate = &rate
		if !effectiveDate.IsZero() {
			d.ExchangeRateEffectiveDate = &effectiveDate
		}
	})
}

// WithParameter adds or overwrites a document-level parameter.
func (b *Builder) WithParameter(name, value string) *Builder {
	return b.apply(func(d *Document) {
		if d.Parameters == nil {
			d.Parameters = make(map[string]string)
		}
		d.Parameters[name] = value
	})
}

// WithAddress stores a postal address for the given address type, replacing
// whatever the slot held before.
func (b *Builder) WithAddress(typ AddressType, line1, line2, line3, city, region, postalCode, country string) *Builder {
	return b.apply(func(d *Document) {
		d.Addresses = setAddress(d.Addresses, typ, PostalAddress(line1, line2, line3, city, region, postalCode, country))
	})
}

// WithLatLong stores a coordinate pair for the given address type, replacing
// whatever the slot held before.
func (b *Builder) WithLatLong(typ AddressType, latitude, longitude float64) *Builder {
	return b.apply(func(d *Document) {
		d.Addresses = setAddress(d.Addresses, typ, GeoAddress(latitude, longitude))
	})
}

// WithTaxOverride sets a document-level tax override. The override is stored
// as given; the service validates it.
func (b *Builder) WithTaxOverride(typ TaxOverrideType, reason string, taxAmount decimal.Decimal, taxDate time.Time) *Builder {
	return b.apply(func(d *Document) {
		d.TaxOverride = newTaxOverride(typ, reason, taxAmount, taxDate)
	})
}

// WithItemDiscount sets whether the document discount applies to the current line.
func (b *Builder) WithItemDiscount(discounted bool) *Builder {
	return b.applyToLine("WithItemDiscount", func(l *LineItem) { l.Discounted = &discounted })
}

// WithLineDescription sets the description of the current line.
func (b *Builder) WithLineDescription(description string) *Builder {
	return b.applyToLine("WithLineDescription", func(l *LineItem) { l.Description = description })
}

// WithLineTaxIncluded marks the current line amount as tax-inclusive.
func (b *Builder) WithLineTaxIncluded() *Builder {
	return b.applyToLine("WithLineTaxIncluded", func(l *LineItem) { l.TaxIncluded = true })
}

// WithLineCustomFields sets the reference fields of the current line. An empty
// ref2 is left out.
func (b *Builder) WithLineCustomFields(ref1, ref2 string) *Builder {
	return b.applyToLine("WithLineCustomFields", func(l *LineItem) {
		l.Ref1 = ref1
		if ref2 != "" {
			l.Ref2 = ref2
		}
	})
}

// WithLineParameter adds or overwrites a parameter on the current line.
func (b *Builder) WithLineParameter(name, value string) *Builder {
	return b.applyToLine("WithLineParameter", func(l *LineItem) {
		if l.Parameters == nil {
			l.Parameters = make(map[string]string)
		}
		l.Parameters[name] = value
	})
}

// WithLineAddress stores a postal address on the current line.
func (b *Builder) WithLineAddress(typ AddressType, line1, line2, line3, city, region, postalCode, country string) *Builder {
	return b.applyToLine("WithLineAddress", func(l *LineItem) {
		l.Addresses = setAddress(l.Addresses, typ, PostalAddress(line1, line2, line3, city, region, postalCode, country))
	})
}

// WithLineTaxOverride sets a tax override on the current line. A TaxDate
// override without a date fails before anything is changed.
func (b *Builder) WithLineTaxOverride(typ TaxOverrideType, reason string, taxAmount decimal.Decimal, taxDate time.Time) *Builder {
	if b.err != nil {
		return b
	}
	if typ == TaxOverrideTypeTaxDate && taxDate.IsZero() {
		b.err = fmt.Errorf("WithLineTaxOverride: %w", ErrTaxDateRequired)
		return b
	}
	return b.applyToLine("WithLineTaxOverride", func(l *LineItem) {
		l.TaxOverride = newTaxOverride(typ, reason, taxAmount, taxDate)
	})
}

// WithLine appends a line with an explicit quantity and tax code.
func (b *Builder) WithLine(amount, quantity decimal.Decimal, itemCode, taxCode string) *Builder {
	return b.appendLine(LineItem{
		Quantity: quantity,
		Amount:   amount,
		TaxCode:  taxCode,
		ItemCode: itemCode,
	})
}

// WithSeparateAddressLine appends a single-quantity line that carries its own
// postal address. No tax code is set; the service uses the item default.
func (b *Builder) WithSeparateAddressLine(amount decimal.Decimal, typ AddressType, line1, line2, line3, city, region, postalCode, country string) *Builder {
	return b.appendLine(LineItem{
		Quantity: decimal.NewFromInt(1),
		Amount:   amount,
		Addresses: map[AddressType]AddressInfo{
			typ: PostalAddress(line1, line2, line3, city, region, postalCode, country),
		},
	})
}

// WithExemptLine appends a single-quantity line with an exemption code and no
// tax code.
func (b *Builder) WithExemptLine(amount decimal.Decimal, itemCode, exemptionCode string) *Builder {
	return b.appendLine(LineItem{
		Quantity:      decimal.NewFromInt(1),
		Amount:        amount,
		ExemptionCode: exemptionCode,
		ItemCode:      itemCode,
	})
}

// CurrentLineNumber returns the position of the most recent line in the
// document's line slice. The boolean is false when no line has been added.
func (b *Builder) CurrentLineNumber() (int, bool) {
	li, err := lastLineIndex(b.model.Lines)
	if errors.Is(err, ErrNoLines) {
		return 0, false
	}
	return li, true
}

// Err returns the first usage error recorded by the chain, if any.
func (b *Builder) Err() error {
	return b.err
}

// Document returns the document built so far.
func (b *Builder) Document() (Document, error) {
	if b.err != nil {
		return Document{}, b.err
	}
	return b.model, nil
}

// Create submits the document to the service. include names related objects
// the service should return and may be empty.
func (b *Builder) Create(ctx context.Context, include string) (*Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.svc == nil {
		return nil, errors.New("create transaction: no service configured")
	}
	return b.svc.CreateTransaction(ctx, include, b.model)
}

// CreateAdjustmentRequest wraps the document for an adjust-transaction call.
// Nothing is sent; the caller submits the request through an Adjuster.
func (b *Builder) CreateAdjustmentRequest(description string, reason AdjustmentReason) (*AdjustmentRequest, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &AdjustmentRequest{
		NewTransaction:        b.model,
		AdjustmentDescription: description,
		AdjustmentReason:      reason,
	}, nil
}

func (b *Builder) apply(fn func(*Document)) *Builder {
	if b.err != nil {
		return b
	}
	fn(&b.model)
	return b
}

func (b *Builder) applyToLine(method string, fn func(*LineItem)) *Builder {
	if b.err != nil {
		return b
	}
	li, err := lastLineIndex(b.model.Lines)
	if err != nil {
		b.err = fmt.Errorf("%s applies to the most recent line, add a line first: %w", method, err)
		return b
	}
	fn(&b.model.Lines[li])
	return b
}

func (b *Builder) appendLine(line LineItem) *Builder {
	if b.err != nil {
		return b
	}
	line.Number = b.lineNumber
	b.model.Lines = append(b.model.Lines, line)
	b.lineNumber++
	return b
}

// lastLineIndex resolves the cursor: the index of the last appended line.
func lastLineIndex(lines []LineItem) (int, error) {
	if len(lines) == 0 {
		return 0, ErrNoLines
	}
	return len(lines) - 1, nil
}

func setAddress(addrs map[AddressType]AddressInfo, typ AddressType, addr AddressInfo) map[AddressType]AddressInfo {
	if addrs == nil {
		addrs = make(map[AddressType]AddressInfo)
	}
	addrs[typ] = addr
	return addrs
}

func newTaxOverride(typ TaxOverrideType, reason string, taxAmount decimal.Decimal, taxDate time.Time) *TaxOverride {
	override := &TaxOverride{
		Type:      typ,
		Reason:    reason,
		TaxAmount: taxAmount,
	}
	if !taxDate.IsZero() {
		override.TaxDate = &taxDate
	}
	return override
}
