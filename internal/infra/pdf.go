package infra

// pdf.go: sale receipt rendering with go-pdf/fpdf.
// Receipts are 74mm wide (thermal paper) and grow with the number of items:
// shop header, sale reference and date, item table, discount, total, and
// the payment / credit status line.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"subhlabh/internal/model"

	"github.com/go-pdf/fpdf"
)

// ReceiptHeader carries the shop-level fields printed on every receipt.
type ReceiptHeader struct {
	ShopName string
	Location *time.Location
}

// ReceiptFileName is the name under which a sale's receipt is stored.
func ReceiptFileName(saleID fmt.Stringer) string {
	return fmt.Sprintf("receipt_%s.pdf", saleID)
}

// SaveReceiptPDF renders the receipt into storagePath (created if needed) and
// returns the path of the written file.
func SaveReceiptPDF(sale *model.Sale, hdr ReceiptHeader, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, ReceiptFileName(sale.ID))

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := WriteReceiptPDF(f, sale, hdr); err != nil {
		f.Close()
		os.Remove(filePath)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return filePath, nil
}

// WriteReceiptPDF renders the receipt of sale into w. Items must have their
// Product preloaded for names to print.
func WriteReceiptPDF(w io.Writer, sale *model.Sale, hdr ReceiptHeader) error {
	loc := hdr.Location
	if loc == nil {
		loc = time.UTC
	}

	height := 70.0 + 5*float64(len(sale.Items))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr(hdr.ShopName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Bill No. "+shortID(sale.ID.String()), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, sale.SaleDate.In(loc).Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if sale.Customer != nil {
		pdf.CellFormat(contentW, 4, tr("Customer: "+sale.Customer.Name+" ("+sale.Customer.Phone+")"), "", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(contentW, 4, "Customer: walk-in", "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46
	col2 := contentW * 0.22
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for i := range sale.Items {
		item := &sale.Items[i]
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		if r := []rune(name); len(r) > 22 {
			name = string(r[:21]) + "..."
		}
		pdf.CellFormat(col1, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+item.Quantity.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "Rs. "+item.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(1)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	if !sale.DiscountAmount.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Discount:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-Rs. "+sale.DiscountAmount.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Rs. "+sale.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	status := "Paid (" + sale.PaymentMethod + ")"
	if !sale.IsPaid {
		status = "Unpaid - added to credit"
	}
	pdf.CellFormat(contentW, 4, status, "", 1, "L", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you, visit again!", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
