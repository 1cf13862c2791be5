package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType identifies the kind of transaction being recorded.
type DocumentType string

const (
	DocumentTypeSalesOrder               DocumentType = "SalesOrder"
	DocumentTypeSalesInvoice             DocumentType = "SalesInvoice"
	DocumentTypePurchaseOrder            DocumentType = "PurchaseOrder"
	DocumentTypePurchaseInvoice          DocumentType = "PurchaseInvoice"
	DocumentTypeReturnOrder              DocumentType = "ReturnOrder"
	DocumentTypeReturnInvoice            DocumentType = "ReturnInvoice"
	DocumentTypeInventoryTransferOrder   DocumentType = "InventoryTransferOrder"
	DocumentTypeInventoryTransferInvoice DocumentType = "InventoryTransferInvoice"
	DocumentTypeReverseChargeOrder       DocumentType = "ReverseChargeOrder"
	DocumentTypeReverseChargeInvoice     DocumentType = "ReverseChargeInvoice"
	DocumentTypeAny                      DocumentType = "Any"
)

// AddressType is the role an address plays in a transaction.
type AddressType string

const (
	AddressTypeSingleLocation              AddressType = "SingleLocation"
	AddressTypeShipFrom                    AddressType = "ShipFrom"
	AddressTypeShipTo                      AddressType = "ShipTo"
	AddressTypePointOfOrderOrigin          AddressType = "PointOfOrderOrigin"
	AddressTypePointOfOrderAcceptance      AddressType = "PointOfOrderAcceptance"
	AddressTypeGoodsPlaceOrServiceRendered AddressType = "GoodsPlaceOrServiceRendered"
	AddressTypeImport                      AddressType = "Import"
	AddressTypeBillTo                      AddressType = "BillTo"
)

// TaxOverrideType selects what a tax override replaces.
type TaxOverrideType string

const (
	TaxOverrideTypeNone             TaxOverrideType = "None"
	TaxOverrideTypeTaxAmount        TaxOverrideType = "TaxAmount"
	TaxOverrideTypeExemption        TaxOverrideType = "Exemption"
	TaxOverrideTypeTaxDate          TaxOverrideType = "TaxDate"
	TaxOverrideTypeAccruedTaxAmount TaxOverrideType = "AccruedTaxAmount"
	TaxOverrideTypeDeriveTaxable    TaxOverrideType = "DeriveTaxable"
	TaxOverrideTypeOutOfHarbor      TaxOverrideType = "OutOfHarbor"
)

// DebugLevel controls how much diagnostic output the service returns.
type DebugLevel string

const (
	DebugLevelNormal     DebugLevel = "Normal"
	DebugLevelDiagnostic DebugLevel = "Diagnostic"
)

// AdjustmentReason explains why a committed transaction is being adjusted.
type AdjustmentReason string

const (
	AdjustmentReasonNotAdjusted                 AdjustmentReason = "NotAdjusted"
	AdjustmentReasonSourcingIssue               AdjustmentReason = "SourcingIssue"
	AdjustmentReasonReconciledWithGeneralLedger AdjustmentReason = "ReconciledWithGeneralLedger"
	AdjustmentReasonExemptCertApplied           AdjustmentReason = "ExemptCertApplied"
	AdjustmentReasonPriceAdjusted               AdjustmentReason = "PriceAdjusted"
	AdjustmentReasonProductReturned             AdjustmentReason = "ProductReturned"
	AdjustmentReasonProductExchanged            AdjustmentReason = "ProductExchanged"
	AdjustmentReasonBadDebt                     AdjustmentReason = "BadDebt"
	AdjustmentReasonOther                       AdjustmentReason = "Other"
	AdjustmentReasonOffline                     AdjustmentReason = "Offline"
)

// AddressInfo holds either a postal address or a geocoordinate pair.
// A slot in an address map never carries both forms.
type AddressInfo struct {
	Line1      string   `json:"line1,omitempty"`
	Line2      string   `json:"line2,omitempty"`
	Line3      string   `json:"line3,omitempty"`
	City       string   `json:"city,omitempty"`
	Region     string   `json:"region,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// PostalAddress builds the street-address form of AddressInfo.
func PostalAddress(line1, line2, line3, city, region, postalCode, country string) AddressInfo {
	return AddressInfo{
		Line1:      line1,
		Line2:      line2,
		Line3:      line3,
		City:       city,
		Region:     region,
		PostalCode: postalCode,
		Country:    country,
	}
}

// GeoAddress builds the latitude/longitude form of AddressInfo.
func GeoAddress(latitude, longitude float64) AddressInfo {
	return AddressInfo{Latitude: &latitude, Longitude: &longitude}
}

// TaxOverride instructs the service to use a caller-supplied amount or date.
// All four fields are always serialized.
type TaxOverride struct {
	Type      TaxOverrideType `json:"type"`
	Reason    string          `json:"reason"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	TaxDate   *time.Time      `json:"taxDate"`
}

// LineItem is one taxable entry in a Document.
type LineItem struct {
	Number        int                         `json:"number"`
	Quantity      decimal.Decimal             `json:"quantity"`
	Amount        decimal.Decimal             `json:"amount"`
	TaxCode       string                      `json:"taxCode,omitempty"`
	ItemCode      string                      `json:"itemCode,omitempty"`
	ExemptionCode string                      `json:"exemptionCode,omitempty"`
	Discounted    *bool                       `json:"discounted,omitempty"`
	Description   string                      `json:"description,omitempty"`
	TaxIncluded   bool                        `json:"taxIncluded,omitempty"`
	Ref1          string                      `json:"ref1,omitempty"`
	Ref2          string                      `json:"ref2,omitempty"`
	Parameters    map[string]string           `json:"parameters,omitempty"`
	Addresses     map[AddressType]AddressInfo `json:"addresses,omitempty"`
	TaxOverride   *TaxOverride                `json:"taxOverride,omitempty"`
}

// Document is the transaction assembled by a Builder and sent to the
// calculation service.
type Document struct {
	CompanyCode               string                      `json:"companyCode"`
	CustomerCode              string                      `json:"customerCode"`
	Date                      time.Time                   `json:"date"`
	Type                      DocumentType                `json:"type"`
	Lines                     []LineItem                  `json:"lines"`
	Commit                    bool                        `json:"commit,omitempty"`
	DebugLevel                DebugLevel                  `json:"debugLevel,omitempty"`
	Discount                  *decimal.Decimal            `json:"discount,omitempty"`
	Code                      string                      `json:"code,omitempty"`
	BusinessIdentificationNo  string                      `json:"businessIdentificationNo,omitempty"`
	EntityUseCode             string                      `json:"entityUseCode,omitempty"`
	PurchaseOrderNo           string                      `json:"purchaseOrderNo,omitempty"`
	ReferenceCode             string                      `json:"referenceCode,omitempty"`
	CurrencyCode              string                      `json:"currencyCode,omitempty"`
	ReportingLocationCode     string                      `json:"reportingLocationCode,omitempty"`
	IsSellerImporterOfRecord  bool                        `json:"isSellerImporterOfRecord,omitempty"`
	ExchangeRate              *decimal.Decimal            `json:"exchangeRate,omitempty"`
	ExchangeRateEffectiveDate *time.Time                  `json:"exchangeRateEffectiveDate,omitempty"`
	Parameters                map[string]string           `json:"parameters,omitempty"`
	Addresses                 map[AddressType]AddressInfo `json:"addresses,omitempty"`
	TaxOverride               *TaxOverride                `json:"taxOverride,omitempty"`
}

// AdjustmentRequest wraps a rebuilt document for the adjust-transaction call.
type AdjustmentRequest struct {
	NewTransaction        Document         `json:"newTransaction"`
	AdjustmentDescription string           `json:"adjustmentDescription"`
	AdjustmentReason      AdjustmentReason `json:"adjustmentReason"`
}

// Result is the transaction returned by the calculation service.
type Result struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	CompanyID          int64           `json:"companyId"`
	Date               string          `json:"date"`
	Status             string          `json:"status"`
	Type               DocumentType    `json:"type"`
	CustomerCode       string          `json:"customerCode"`
	CurrencyCode       string          `json:"currencyCode,omitempty"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	TotalExempt        decimal.Decimal `json:"totalExempt"`
	TotalDiscount      decimal.Decimal `json:"totalDiscount"`
	TotalTax           decimal.Decimal `json:"totalTax"`
	TotalTaxable       decimal.Decimal `json:"totalTaxable"`
	TotalTaxCalculated decimal.Decimal `json:"totalTaxCalculated"`
	AdjustmentReason   string          `json:"adjustmentReason,omitempty"`
	Locked             bool            `json:"locked"`
	Version            int             `json:"version"`
	Lines              []LineResult    `json:"lines,omitempty"`
	Summary            []TaxSummary    `json:"summary,omitempty"`
	Messages           []Message       `json:"messages,omitempty"`
}

// LineResult is the per-line breakdown of a calculated transaction.
type LineResult struct {
	ID                int64           `json:"id"`
	LineNumber        string          `json:"lineNumber"`
	ItemCode          string          `json:"itemCode,omitempty"`
	TaxCode           string          `json:"taxCode,omitempty"`
	ExemptCertID      int64           `json:"exemptCertId,omitempty"`
	LineAmount        decimal.Decimal `json:"lineAmount"`
	Tax               decimal.Decimal `json:"tax"`
	TaxableAmount     decimal.Decimal `json:"taxableAmount"`
	ExemptAmount      decimal.Decimal `json:"exemptAmount"`
	TaxCalculated     decimal.Decimal `json:"taxCalculated"`
	TaxIncluded       bool            `json:"taxIncluded"`
	TaxOverrideAmount decimal.Decimal `json:"taxOverrideAmount"`
}

// TaxSummary aggregates tax per jurisdiction.
type TaxSummary struct {
	Country       string          `json:"country"`
	Region        string          `json:"region"`
	JurisType     string          `json:"jurisType"`
	JurisName     string          `json:"jurisName"`
	TaxName       string          `json:"taxName"`
	Rate          decimal.Decimal `json:"rate"`
	Tax           decimal.Decimal `json:"tax"`
	Taxable       decimal.Decimal `json:"taxable"`
	NonTaxable    decimal.Decimal `json:"nonTaxable"`
	Exemption     decimal.Decimal `json:"exemption"`
	TaxCalculated decimal.Decimal `json:"taxCalculated"`
}

// Message is an informational or warning message attached to a result.
type Message struct {
	Summary  string `json:"summary"`
	Details  string `json:"details,omitempty"`
	RefersTo string `json:"refersTo,omitempty"`
	Severity string `json:"severity,omitempty"`
	Source   string `json:"source,omitempty"`
}
