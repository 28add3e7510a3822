package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/phpdave11/gofpdf"

	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
	"storeapp/internal/utils"
)

// ExportService turns the current filtered console view into a download.
// Exports reuse the engine's predicate and sort but skip pagination and
// the cache: a download should reflect the live table.
type ExportService struct {
	Engine    *listquery.Engine
	Users     repositories.UserRepository
	Products  repositories.ProductRepository
	RequestID string
}

func (s ExportService) UsersCSV(ctx context.Context, st listquery.State) ([]byte, string, error) {
	users, err := listquery.ListAll(ctx, s.Engine, s.Users.ListSpec(), st)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "failed to export users", Err: err}
	}
	utils.LogEvent(s.RequestID, "export", "users_csv", fmt.Sprintf("rows=%d", len(users)))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "email", "email_verified", "role", "banned", "ban_reason", "ban_expires", "created_at"})
	for _, u := range users {
		_ = w.Write([]string{
			u.ID,
			u.Name,
			u.Email,
			strconv.FormatBool(u.EmailVerified),
			u.Role,
			strconv.FormatBool(u.Banned),
			strDeref(u.BanReason),
			timeDeref(u.BanExpires),
			u.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", domain.InternalError{Msg: "failed to write csv", Err: err}
	}
	return buf.Bytes(), exportName("users", "csv"), nil
}

func (s ExportService) ProductsCSV(ctx context.Context, st listquery.State) ([]byte, string, error) {
	products, err := listquery.ListAll(ctx, s.Engine, s.Products.ListSpec(), st)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "failed to export products", Err: err}
	}
	utils.LogEvent(s.RequestID, "export", "products_csv", fmt.Sprintf("rows=%d", len(products)))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "description", "price", "inventory", "status", "category", "created_at"})
	for _, p := range products {
		_ = w.Write([]string{
			p.ID,
			p.Name,
			p.Description,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.FormatInt(p.Inventory, 10),
			p.Status,
			p.Category,
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", domain.InternalError{Msg: "failed to write csv", Err: err}
	}
	return buf.Bytes(), exportName("products", "csv"), nil
}

// ProductsPDF renders the filtered product list as a printable report.
func (s ExportService) ProductsPDF(ctx context.Context, st listquery.State) ([]byte, string, error) {
	products, err := listquery.ListAll(ctx, s.Engine, s.Products.ListSpec(), st)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "failed to export products", Err: err}
	}
	utils.LogEvent(s.RequestID, "export", "products_pdf", fmt.Sprintf("rows=%d", len(products)))

	pdf, err := buildProductReportPDF(products)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "failed to render pdf", Err: err}
	}
	return pdf, exportName("products", "pdf"), nil
}

func buildProductReportPDF(products []models.Product) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Product Report", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "PRODUCT REPORT")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s / %d products", time.Now().Format("2006-01-02 15:04"), len(products)))
	pdf.Ln(10)

	widths := []float64{70, 25, 25, 25, 35, 35}
	headers := []string{"Name", "Price", "Inventory", "Status", "Category", "Created"}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, p := range products {
		cols := []string{
			truncate(p.Name, 40),
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			strconv.FormatInt(p.Inventory, 10),
			p.Status,
			p.Category,
			p.CreatedAt.Format("2006-01-02"),
		}
		for i, c := range cols {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, time.Now().Format("20060102-150405"), ext)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeDeref(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
