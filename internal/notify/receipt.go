package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/vietddude/tema/internal/core/domain"
)

// Receipt is the data printed on a payment receipt.
type Receipt struct {
	PaymentID   string
	Name        string
	CPF         string
	Description string
	Value       float64
	BillingType domain.BillingType
	DueDate     string
	InvoiceURL  string
	Pix         *domain.PixQRCode
	IssuedAt    time.Time
}

// FormatBRL formats v as Brazilian currency without the symbol: 1234.5 -> "1.234,50".
func FormatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// maskCPF keeps only the middle digits: 12345678901 -> ***.456.789-**.
func maskCPF(cpf string) string {
	cpf = domain.NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return cpf
	}
	return "***." + cpf[3:6] + "." + cpf[6:9] + "-**"
}

// RenderReceipt builds a single-page PDF receipt.
func RenderReceipt(r Receipt) ([]byte, error) {
	if r.IssuedAt.IsZero() {
		r.IssuedAt = time.Now()
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Recibo "+r.PaymentID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Recibo de pagamento"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Pagamento", r.PaymentID},
		{"Beneficiário", r.Name},
		{"CPF", maskCPF(r.CPF)},
		{"Descrição", r.Description},
		{"Forma de pagamento", string(r.BillingType)},
		{"Valor", "R$ " + FormatBRL(r.Value)},
		{"Vencimento", r.DueDate},
		{"Emitido em", r.IssuedAt.Format("02/01/2006 15:04")},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}

	if r.InvoiceURL != "" {
		pdf.Ln(2)
		pdf.SetTextColor(0, 0, 200)
		pdf.CellFormat(0, 8, tr("Ver fatura"), "", 1, "L", false, 0, r.InvoiceURL)
		pdf.SetTextColor(0, 0, 0)
	}

	if r.Pix != nil && r.Pix.EncodedImage != "" {
		img, err := base64.StdEncoding.DecodeString(r.Pix.EncodedImage)
		if err != nil {
			return nil, fmt.Errorf("decode pix image: %w", err)
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, "PIX", "", 1, "L", false, 0, "")
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("pix", opts, bytes.NewReader(img))
		pdf.ImageOptions("pix", pdf.GetX(), pdf.GetY(), 50, 50, true, opts, 0, "")
		pdf.SetFont("Courier", "", 7)
		pdf.MultiCell(0, 4, r.Pix.Payload, "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
