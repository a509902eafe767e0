package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/domain/booking"
	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

const exportLimit = 5000

var ErrExportGenerateFail = errors.New("failed to generate export")

var bookingSheetHeader = []string{
	"ID", "Session date (UTC)", "End (UTC)", "Session type", "Status", "Client name",
	"Client email", "Price", "Notes", "Admin notes", "Cancellation reason", "Created at",
}

// ExportService renders bookings for the practitioner's own tools.
type ExportService struct {
	bookings booking.Repository
	now      func() time.Time
}

func NewExportService(br booking.Repository) *ExportService {
	return &ExportService{bookings: br, now: time.Now}
}

// Workbook writes the bookings matching f to an .xlsx workbook and returns
// it with a suggested file name.
func (s *ExportService) Workbook(ctx context.Context, f booking.Filter) (*bytes.Buffer, string, error) {
	f.Limit = exportLimit
	f.Offset = 0
	list, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, "", err
	}

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Bookings"
	idx, err := file.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	file.SetActiveSheet(idx)
	file.DeleteSheet("Sheet1")

	headerStyle, _ := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	for i, title := range bookingSheetHeader {
		file.SetCellValue(sheet, cell(i, 1), title)
	}
	file.SetCellStyle(sheet, cell(0, 1), cell(len(bookingSheetHeader)-1, 1), headerStyle)
	file.SetColWidth(sheet, "A", "A", 38)
	file.SetColWidth(sheet, "B", "C", 20)
	file.SetColWidth(sheet, "D", "G", 22)
	file.SetColWidth(sheet, "I", "K", 30)

	for r, b := range list {
		row := r + 2
		values := []interface{}{
			b.ID,
			b.SessionDate.UTC().Format("2006-01-02 15:04"),
			b.End().Format("2006-01-02 15:04"),
			string(b.SessionType),
			b.Status.String(),
			b.ClientName,
			b.ClientEmail,
			float64(b.PriceCents) / 100,
			b.Notes,
			b.AdminNotes,
			b.CancellationReason,
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		for c, v := range values {
			file.SetCellValue(sheet, cell(c, row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := file.Write(buf); err != nil {
		logger.Error("failed to write bookings workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("bookings_%s.xlsx", s.now().UTC().Format("2006-01-02")), nil
}

// Calendar returns an iCalendar feed of upcoming confirmed and scheduled
// sessions.
func (s *ExportService) Calendar(ctx context.Context) (string, error) {
	from := s.now().UTC()
	list, err := s.bookings.List(ctx, booking.Filter{From: &from, Limit: exportLimit})
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendarFor("booking-engine")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName("Client sessions")
	for _, b := range list {
		if b.Status != booking.StatusConfirmed && b.Status != booking.StatusScheduled {
			continue
		}
		ev := cal.AddEvent(b.ID + "@booking-engine")
		ev.SetDtStampTime(b.UpdatedAt.UTC())
		ev.SetCreatedTime(b.CreatedAt.UTC())
		ev.SetStartAt(b.SessionDate.UTC())
		ev.SetEndAt(b.End())
		ev.SetSummary(fmt.Sprintf("%s with %s", sessionName(b.SessionType), b.ClientName))
		ev.SetDescription(fmt.Sprintf("%s\n%s", b.ClientEmail, b.Notes))
		ev.SetStatus(ics.ObjectStatusConfirmed)
	}
	return cal.Serialize(), nil
}

func sessionName(t booking.SessionType) string {
	cfg, err := booking.LookupSessionType(string(t))
	if err != nil {
		return string(t)
	}
	return cfg.Name
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
