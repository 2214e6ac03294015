package intake

import (
	"fmt"
	"strings"
	"time"
)

// Event kinds accepted from the other services. These command strings are
// wire contract with the billing and reporting producers and must not change.
const (
	KindInvoiceClosed  = "send-closed-invoices-not"
	KindInvoiceOverdue = "send-delayed-invoices-not"
	KindReportReady    = "send-report-done-not"
)

// CreditCard carries the card attributes needed to render invoice messages.
type CreditCard struct {
	Nickname string `json:"nickname" validate:"required"`
	DueDay   int    `json:"dueDay" validate:"required,min=1,max=31"`
}

// InvoiceEvent is one element of an invoice-closed or invoice-overdue batch.
type InvoiceEvent struct {
	UserID     int64      `json:"userId" validate:"required,gt=0"`
	InvoiceID  string     `json:"invoiceId" validate:"required"`
	Month      string     `json:"month" validate:"required,len=7"`
	CreditCard CreditCard `json:"creditCard" validate:"required"`
}

// ReportEvent announces a finished report job.
type ReportEvent struct {
	UserID   int64  `json:"userId" validate:"required,gt=0"`
	ReportID string `json:"reportId" validate:"required"`
	Month    string `json:"month" validate:"required,len=7"`
}

// ptBRMonths maps month numbers to the lowercase pt-BR month names used in
// notification texts. A fixed table keeps the output independent of the
// process locale.
var ptBRMonths = [...]string{
	time.January:   "janeiro",
	time.February:  "fevereiro",
	time.March:     "março",
	time.April:     "abril",
	time.May:       "maio",
	time.June:      "junho",
	time.July:      "julho",
	time.August:    "agosto",
	time.September: "setembro",
	time.October:   "outubro",
	time.November:  "novembro",
	time.December:  "dezembro",
}

func parseMonth(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("month must be formatted as YYYY-MM: %w", err)
	}
	return parsed, nil
}

func closedInvoiceMessage(event InvoiceEvent) (title, content string, err error) {
	month, err := parseMonth(event.Month)
	if err != nil {
		return "", "", err
	}

	title = fmt.Sprintf("Sua fatura %s fechou!", event.CreditCard.Nickname)
	content = fmt.Sprintf(
		"Fatura do mês de %s está fechada, efetue o pagamento até o dia %d/%02d.",
		ptBRMonths[month.Month()],
		event.CreditCard.DueDay,
		int(month.Month()),
	)
	return title, content, nil
}

func overdueInvoiceMessage(event InvoiceEvent) (title, content string, err error) {
	month, err := parseMonth(event.Month)
	if err != nil {
		return "", "", err
	}

	title = fmt.Sprintf("Fatura %s atrasada!", event.CreditCard.Nickname)
	content = fmt.Sprintf(
		"A fatura do mês de %s está atrasada, efetue o pagamento o quanto antes.",
		ptBRMonths[month.Month()],
	)
	return title, content, nil
}

func reportReadyMessage(event ReportEvent) (title, content string, err error) {
	if _, err := parseMonth(event.Month); err != nil {
		return "", "", err
	}

	title = "Relatório pronto!"
	content = fmt.Sprintf(
		"O seu relatório solicitado do mês %s ficou pronto, clique aqui para baixar.",
		strings.ReplaceAll(event.Month, "-", "/"),
	)
	return title, content, nil
}
