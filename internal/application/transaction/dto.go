package transaction

import (
	"github.com/shopspring/decimal"

	coretx "3tcapital/taxcore/internal/core/transaction"
)

// LineKind selects which builder appender a Line replays through.
type LineKind string

const (
	LineKindLine    LineKind = "line"
	LineKindExempt  LineKind = "exempt"
	LineKindAddress LineKind = "address"
)

// dateLayout is the calendar-date format accepted for tax and exchange-rate dates.
const dateLayout = "2006-01-02"

// Request describes a whole transaction declaratively. It is the JSON body of
// the gateway endpoints and the unit of the CLI's YAML files.
type Request struct {
	CompanyCode              string              `json:"companyCode" yaml:"companyCode" validate:"required,max=25"`
	CustomerCode             string              `json:"customerCode" yaml:"customerCode" validate:"required,max=50"`
	Type                     coretx.DocumentType `json:"type" yaml:"type" validate:"required,oneof=SalesOrder SalesInvoice PurchaseOrder PurchaseInvoice ReturnOrder ReturnInvoice InventoryTransferOrder InventoryTransferInvoice ReverseChargeOrder ReverseChargeInvoice Any"`
	Code                     string              `json:"code,omitempty" yaml:"code,omitempty" validate:"omitempty,max=50"`
	Commit                   bool                `json:"commit,omitempty" yaml:"commit,omitempty"`
	Diagnostics              bool                `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Discount                 *decimal.Decimal    `json:"discount,omitempty" yaml:"discount,omitempty"`
	BusinessIdentificationNo string              `json:"businessIdentificationNo,omitempty" yaml:"businessIdentificationNo,omitempty" validate:"omitempty,max=25"`
	EntityUseCode            string              `json:"entityUseCode,omitempty" yaml:"entityUseCode,omitempty" validate:"omitempty,max=25"`
	PurchaseOrderNo          string              `json:"purchaseOrderNo,omitempty" yaml:"purchaseOrderNo,omitempty" validate:"omitempty,max=50"`
	ReferenceCode            string              `json:"referenceCode,omitempty" yaml:"referenceCode,omitempty" validate:"omitempty,max=1024"`
	CurrencyCode             string              `json:"currencyCode,omitempty" yaml:"currencyCode,omitempty" validate:"omitempty,len=3,alpha"`
	ReportingLocationCode    string              `json:"reportingLocationCode,omitempty" yaml:"reportingLocationCode,omitempty" validate:"omitempty,max=50"`
	SellerIsImporterOfRecord bool                `json:"sellerIsImporterOfRecord,omitempty" yaml:"sellerIsImporterOfRecord,omitempty"`
	ExchangeRate             *ExchangeRate       `json:"exchangeRate,omitempty" yaml:"exchangeRate,omitempty"`
	Parameters               []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
	Addresses                []Address           `json:"addresses,omitempty" yaml:"addresses,omitempty" validate:"dive"`
	TaxOverride              *TaxOverride        `json:"taxOverride,omitempty" yaml:"taxOverride,omitempty"`
	Lines                    []Line              `json:"lines" yaml:"lines" validate:"required,min=1,dive"`
}

// ExchangeRate is the document exchange rate. EffectiveDate may be empty.
type ExchangeRate struct {
	Rate          decimal.Decimal `json:"rate" yaml:"rate"`
	EffectiveDate string          `json:"effectiveDate,omitempty" yaml:"effectiveDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Parameter is a name/value pair. Later entries with the same name win.
type Parameter struct {
	Name  string `json:"name" yaml:"name" validate:"required,max=100"`
	Value string `json:"value" yaml:"value"`
}

// PostalAddress is a street address stored under an address type.
type PostalAddress struct {
	Type       coretx.AddressType `json:"type" yaml:"type" validate:"required,oneof=SingleLocation ShipFrom ShipTo PointOfOrderOrigin PointOfOrderAcceptance GoodsPlaceOrServiceRendered Import BillTo"`
	Line1      string             `json:"line1,omitempty" yaml:"line1,omitempty" validate:"omitempty,max=50"`
	Line2      string             `json:"line2,omitempty" yaml:"line2,omitempty" validate:"omitempty,max=100"`
	Line3      string             `json:"line3,omitempty" yaml:"line3,omitempty" validate:"omitempty,max=100"`
	City       string             `json:"city,omitempty" yaml:"city,omitempty" validate:"omitempty,max=50"`
	Region     string             `json:"region,omitempty" yaml:"region,omitempty" validate:"omitempty,max=3"`
	PostalCode string             `json:"postalCode,omitempty" yaml:"postalCode,omitempty" validate:"omitempty,max=11"`
	Country    string             `json:"country,omitempty" yaml:"country,omitempty" validate:"omitempty,max=2"`
}

// Address is a document-level address: postal, or a coordinate pair when
// both Latitude and Longitude are set.
type Address struct {
	PostalAddress `yaml:",inline"`
	Latitude      *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude     *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty" validate:"required_with=Latitude,omitempty,longitude"`
}

func (a Address) geocoded() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// TaxOverride mirrors transaction.TaxOverride with a calendar-date string.
type TaxOverride struct {
	Type      coretx.TaxOverrideType `json:"type" yaml:"type" validate:"required,oneof=None TaxAmount Exemption TaxDate AccruedTaxAmount DeriveTaxable OutOfHarbor"`
	Reason    string                 `json:"reason,omitempty" yaml:"reason,omitempty" validate:"omitempty,max=255"`
	TaxAmount decimal.Decimal        `json:"taxAmount" yaml:"taxAmount"`
	TaxDate   string                 `json:"taxDate,omitempty" yaml:"taxDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Line is one line of a Request. Kind defaults to "line".
type Line struct {
	Kind          LineKind         `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=line exempt address"`
	Amount        decimal.Decimal  `json:"amount" yaml:"amount"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	ItemCode      string           `json:"itemCode,omitempty" yaml:"itemCode,omitempty" validate:"omitempty,max=50"`
	TaxCode       string           `json:"taxCode,omitempty" yaml:"taxCode,omitempty" validate:"omitempty,max=25"`
	ExemptionCode string           `json:"exemptionCode,omitempty" yaml:"exemptionCode,omitempty" validate:"required_if=Kind exempt,omitempty,max=25"`
	Address       *PostalAddress   `json:"address,omitempty" yaml:"address,omitempty" validate:"required_if=Kind address"`

	Description string          `json:"description,omitempty" yaml:"description,omitempty" validate:"omitempty,max=2048"`
	Discounted  *bool           `json:"discounted,omitempty" yaml:"discounted,omitempty"`
	TaxIncluded bool            `json:"taxIncluded,omitempty" yaml:"taxIncluded,omitempty"`
	Ref1        string          `json:"ref1,omitempty" yaml:"ref1,omitempty" validate:"omitempty,max=250"`
	Ref2        string          `json:"ref2,omitempty" yaml:"ref2,omitempty" validate:"omitempty,max=250"`
	Parameters  []Parameter     `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
	Addresses   []PostalAddress `json:"addresses,omitempty" yaml:"addresses,omitempty" validate:"dive"`
	TaxOverride *TaxOverride    `json:"taxOverride,omitempty" yaml:"taxOverride,omitempty"`
}

func (l Line) kind() LineKind {
	if l.Kind == "" {
		return LineKindLine
	}
	return l.Kind
}

// AdjustRequest is a rebuilt transaction plus the reason for adjusting.
type AdjustRequest struct {
	NewTransaction Request                 `json:"newTransaction" yaml:"newTransaction"`
	Description    string                  `json:"adjustmentDescription" yaml:"adjustmentDescription" validate:"required,max=255"`
	Reason         coretx.AdjustmentReason `json:"adjustmentReason" yaml:"adjustmentReason" validate:"required,oneof=NotAdjusted SourcingIssue ReconciledWithGeneralLedger ExemptCertApplied PriceAdjusted ProductReturned ProductExchanged BadDebt Other Offline"`
}
