package server

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/facture-ocr/internal/decimal"
	"github.com/rezonia/facture-ocr/internal/model"
)

const (
	nsRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	facturXFormat = "factur-x-basic"
	rootElement   = "CrossIndustryInvoice"
)

// crossIndustryInvoice is the subset of the CII document the stub emits.
type crossIndustryInvoice struct {
	XMLName  xml.Name `xml:"rsm:CrossIndustryInvoice"`
	XMLNSRSM string   `xml:"xmlns:rsm,attr"`
	XMLNSRAM string   `xml:"xmlns:ram,attr"`
	XMLNSUDT string   `xml:"xmlns:udt,attr"`

	Document struct {
		ID       string `xml:"ram:ID"`
		TypeCode string `xml:"ram:TypeCode"`
		Issue    struct {
			Date struct {
				Format string `xml:"format,attr"`
				Value  string `xml:",chardata"`
			} `xml:"udt:DateTimeString"`
		} `xml:"ram:IssueDateTime"`
	} `xml:"rsm:ExchangedDocument"`

	Transaction struct {
		Lines     []ciiLine `xml:"ram:IncludedSupplyChainTradeLineItem"`
		Agreement struct {
			Seller ciiParty `xml:"ram:SellerTradeParty"`
			Buyer  ciiParty `xml:"ram:BuyerTradeParty"`
		} `xml:"ram:ApplicableHeaderTradeAgreement"`
		Settlement struct {
			Currency  string  `xml:"ram:InvoiceCurrencyCode"`
			Tax       *ciiTax `xml:"ram:ApplicableTradeTax"`
			Summation struct {
				TaxBasis   string `xml:"ram:TaxBasisTotalAmount"`
				TaxTotal   string `xml:"ram:TaxTotalAmount"`
				GrandTotal string `xml:"ram:GrandTotalAmount"`
				DuePayable string `xml:"ram:DuePayableAmount"`
			} `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
		} `xml:"ram:ApplicableHeaderTradeSettlement"`
	} `xml:"rsm:SupplyChainTradeTransaction"`
}

type ciiTax struct {
	Calculated string `xml:"ram:CalculatedAmount"`
	TypeCode   string `xml:"ram:TypeCode"`
	Basis      string `xml:"ram:BasisAmount"`
	Category   string `xml:"ram:CategoryCode"`
	Rate       string `xml:"ram:RateApplicablePercent"`
}

type ciiParty struct {
	Name string `xml:"ram:Name"`
}

type ciiLine struct {
	LineID string `xml:"ram:AssociatedDocumentLineDocument>ram:LineID"`
	Name   string `xml:"ram:SpecifiedTradeProduct>ram:Name"`
	Price  string `xml:"ram:SpecifiedLineTradeAgreement>ram:NetPriceProductTradePrice>ram:ChargeAmount"`
	Qty    string `xml:"ram:SpecifiedLineTradeDelivery>ram:BilledQuantity"`
	Total  string `xml:"ram:SpecifiedLineTradeSettlement>ram:SpecifiedTradeSettlementLineMonetarySummation>ram:LineTotalAmount"`
}

func (s *Server) handleFacturXGenerate(c *gin.Context) {
	var data model.InvoiceData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid invoice data: " + err.Error()})
		return
	}

	out, err := generateFacturX(&data, s.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "failed to generate Factur-X XML: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FacturXDocument{
		Success: model.Ptr(true),
		XML:     model.Ptr(out),
		Format:  model.Ptr(facturXFormat),
	})
}

func (s *Server) handleFacturXParse(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "field required: file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, DetailResponse{Detail: "failed to read uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, DetailResponse{Detail: "failed to read uploaded file"})
		return
	}

	embedded, ok := findEmbeddedXML(content)
	if !ok {
		c.JSON(http.StatusOK, model.FacturXParseResult{
			Success: model.Ptr(false),
			Error:   model.Ptr("no Factur-X XML found in document"),
		})
		return
	}

	c.JSON(http.StatusOK, model.FacturXParseResult{
		Success: model.Ptr(true),
		XML:     model.Ptr(embedded),
		Data:    parseFacturX(embedded),
	})
}

func (s *Server) handleFacturXValidate(c *gin.Context) {
	var req facturXValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid JSON body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.XMLContent) == "" {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "field required: xml_content"})
		return
	}
	c.JSON(http.StatusOK, validateFacturX(req.XMLContent))
}

func generateFacturX(d *model.InvoiceData, now time.Time) (string, error) {
	var doc crossIndustryInvoice
	doc.XMLNSRSM, doc.XMLNSRAM, doc.XMLNSUDT = nsRSM, nsRAM, nsUDT

	doc.Document.ID = deref(d.InvoiceNumber)
	doc.Document.TypeCode = "380"
	doc.Document.Issue.Date.Format = "102"
	doc.Document.Issue.Date.Value = ciiDate(deref(d.Date), now)

	tx := &doc.Transaction
	tx.Agreement.Seller.Name = deref(d.Vendor)
	tx.Agreement.Buyer.Name = deref(d.Client)
	tx.Settlement.Currency = deref(d.Currency)
	if tx.Settlement.Currency == "" {
		tx.Settlement.Currency = "EUR"
	}

	ttc := d.TotalTTC
	if ttc == nil {
		ttc = d.Total
	}
	tx.Settlement.Summation.TaxBasis = fixed(d.TotalHT)
	tx.Settlement.Summation.TaxTotal = fixed(d.TVA)
	tx.Settlement.Summation.GrandTotal = fixed(ttc)
	tx.Settlement.Summation.DuePayable = fixed(ttc)

	var lineTotals []decimal.Decimal
	for i, item := range d.Items {
		total := item.Total
		if total == nil && item.Quantity != nil && item.UnitPrice != nil {
			total = &model.Amount{Decimal: money.LineTotal(item.Quantity.Decimal, item.UnitPrice.Decimal)}
		}
		if total != nil {
			lineTotals = append(lineTotals, total.Decimal)
		}
		tx.Lines = append(tx.Lines, ciiLine{
			LineID: fmt.Sprint(i + 1),
			Name:   item.Description,
			Price:  fixed(item.UnitPrice),
			Qty:    fixed(item.Quantity),
			Total:  fixed(total),
		})
	}
	// Without a printed HT total, the basis is the sum of the lines.
	var basis *decimal.Decimal
	switch {
	case d.TotalHT != nil:
		basis = &d.TotalHT.Decimal
	case len(lineTotals) > 0:
		sum := money.Sum(lineTotals)
		basis = &sum
		tx.Settlement.Summation.TaxBasis = sum.StringFixed(2)
	}

	if basis != nil {
		rate := applicableRate(*basis, d.TVA, ttc)
		vat := money.CalculateVAT(*basis, rate)
		tx.Settlement.Tax = &ciiTax{
			Calculated: vat.StringFixed(2),
			TypeCode:   "VAT",
			Basis:      basis.StringFixed(2),
			Category:   taxCategory(rate),
			Rate:       rate.StringFixed(2),
		}
		if d.TVA == nil {
			tx.Settlement.Summation.TaxTotal = vat.StringFixed(2)
		}
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// applicableRate picks the French rate nearest to what the totals imply,
// falling back to the standard rate when only the basis is known.
func applicableRate(basis decimal.Decimal, tva, ttc *model.Amount) decimal.Decimal {
	var implied decimal.Decimal
	switch {
	case tva != nil:
		implied = money.ImpliedRate(basis, basis.Add(tva.Decimal))
	case ttc != nil:
		implied = money.ImpliedRate(basis, ttc.Decimal)
	default:
		return money.FrenchVATRates[0]
	}
	return money.ClosestRate(implied, money.FrenchVATRates)
}

func taxCategory(rate decimal.Decimal) string {
	if rate.IsZero() {
		return "E"
	}
	return "S"
}

// findEmbeddedXML looks for an uncompressed CII document inside the PDF bytes.
func findEmbeddedXML(content []byte) (string, bool) {
	start := bytes.Index(content, []byte("<?xml"))
	if start < 0 {
		start = bytes.Index(content, []byte("<rsm:"+rootElement))
	}
	if start < 0 {
		return "", false
	}
	closing := []byte("</rsm:" + rootElement + ">")
	end := bytes.Index(content[start:], closing)
	if end < 0 {
		return "", false
	}
	return string(content[start : start+end+len(closing)]), true
}

// parseFacturX maps the header fields of a CII document back to InvoiceData.
func parseFacturX(doc string) *model.InvoiceData {
	fields := map[string]string{}
	var stack []string

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" || len(stack) < 2 {
				continue
			}
			key := stack[len(stack)-2] + "/" + stack[len(stack)-1]
			if _, seen := fields[key]; !seen {
				fields[key] = text
			}
		}
	}

	data := &model.InvoiceData{
		InvoiceNumber: optional(fields["ExchangedDocument/ID"]),
		Vendor:        optional(fields["SellerTradeParty/Name"]),
		Client:        optional(fields["BuyerTradeParty/Name"]),
		Currency:      optional(fields["ApplicableHeaderTradeSettlement/InvoiceCurrencyCode"]),
	}
	if v := fields["IssueDateTime/DateTimeString"]; len(v) == 8 {
		data.Date = model.Ptr(v[6:8] + "/" + v[4:6] + "/" + v[0:4])
	}
	sum := "SpecifiedTradeSettlementHeaderMonetarySummation/"
	data.TotalHT = amount(fields[sum+"TaxBasisTotalAmount"])
	data.TVA = amount(fields[sum+"TaxTotalAmount"])
	data.TotalTTC = amount(fields[sum+"GrandTotalAmount"])
	return data
}

func validateFacturX(doc string) model.FacturXValidation {
	res := model.FacturXValidation{Errors: []string{}, Warnings: []string{}}

	dec := xml.NewDecoder(strings.NewReader(doc))
	var root *xml.StartElement
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, "malformed XML: "+err.Error())
			break
		}
		if se, ok := tok.(xml.StartElement); ok && root == nil {
			se := se.Copy()
			root = &se
		}
	}

	if len(res.Errors) == 0 {
		if root == nil || root.Name.Local != rootElement {
			res.Errors = append(res.Errors, "root element must be "+rootElement)
		} else if root.Name.Space != nsRSM {
			res.Warnings = append(res.Warnings, "unexpected root namespace "+root.Name.Space)
		}
	}

	if len(res.Errors) == 0 {
		data := parseFacturX(doc)
		if data.InvoiceNumber == nil {
			res.Errors = append(res.Errors, "missing invoice number")
		}
		if data.Date == nil {
			res.Errors = append(res.Errors, "missing issue date")
		}
		if data.Vendor == nil {
			res.Errors = append(res.Errors, "missing seller information")
		}
		if data.Client == nil {
			res.Errors = append(res.Errors, "missing buyer information")
		}
		if data.TotalTTC == nil {
			res.Warnings = append(res.Warnings, "missing grand total")
		}
	}

	res.Valid = len(res.Errors) == 0
	report := fmt.Sprintf("%d error(s), %d warning(s)", len(res.Errors), len(res.Warnings))
	res.Report = &report
	return res
}

// ciiDate converts DD/MM/YYYY or YYYY-MM-DD to CII format 102 (YYYYMMDD).
func ciiDate(s string, now time.Time) string {
	for _, layout := range []string{"02/01/2006", "2006-01-02", "02-01-2006", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}
	return now.Format("20060102")
}

func fixed(a *model.Amount) string {
	if a == nil {
		return ""
	}
	return a.StringFixed(2)
}

func amount(s string) *model.Amount {
	if s == "" {
		return nil
	}
	a, err := model.NewAmountFromString(s)
	if err != nil {
		return nil
	}
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
