package sales

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TicketConfig controls receipt rendering.
type TicketConfig struct {
	BusinessName string
	Locale       string
	Currency     string
	Timezone     string
	Secret       string
}

// TicketView is the receipt of a sale ready for a printer template.
type TicketView struct {
	BusinessName     string          `json:"business_name"`
	SaleNumber       string          `json:"sale_number"`
	IssuedAt         string          `json:"issued_at"`
	OperatorID       int64           `json:"operator_id"`
	RegisterID       int64           `json:"register_id"`
	Status           Status          `json:"status"`
	Lines            []TicketLine    `json:"lines"`
	Subtotal         string          `json:"subtotal"`
	Tax              string          `json:"tax"`
	Discount         string          `json:"discount"`
	Total            string          `json:"total"`
	Payments         []TicketPayment `json:"payments"`
	VerificationCode string          `json:"verification_code"`
}

// TicketLine is one printed line.
type TicketLine struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// TicketPayment is one printed tender.
type TicketPayment struct {
	Kind     string `json:"kind"`
	Tendered string `json:"tendered"`
	Change   string `json:"change"`
	Applied  string `json:"applied"`
}

// Ticketer formats sales into tickets and signs them.
type Ticketer struct {
	business string
	printer  *message.Printer
	unit     currency.Unit
	location *time.Location
	secret   []byte
}

// NewTicketer validates cfg and builds a Ticketer.
func NewTicketer(cfg TicketConfig) (*Ticketer, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("ticket locale %q: %w", cfg.Locale, err)
	}
	unit, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("ticket currency %q: %w", cfg.Currency, err)
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("ticket timezone %q: %w", cfg.Timezone, err)
		}
	}
	if l := len(cfg.Secret); l == 0 || l > blake2b.Size {
		return nil, fmt.Errorf("ticket secret must be 1..%d bytes", blake2b.Size)
	}
	return &Ticketer{
		business: cfg.BusinessName,
		printer:  message.NewPrinter(tag),
		unit:     unit,
		location: loc,
		secret:   []byte(cfg.Secret),
	}, nil
}

func (t *Ticketer) money(v decimal.Decimal) string {
	return t.printer.Sprintf("%v", currency.Symbol(t.unit.Amount(v.InexactFloat64())))
}

// Format renders a sale. The sale must carry its lines.
func (t *Ticketer) Format(sale *Sale) (TicketView, error) {
	if sale == nil || len(sale.Lines) == 0 {
		return TicketView{}, fmt.Errorf("%w: sale has no lines", ErrTicketFormat)
	}
	code, err := t.code(sale)
	if err != nil {
		return TicketView{}, fmt.Errorf("%w: %v", ErrTicketFormat, err)
	}
	view := TicketView{
		BusinessName:     t.business,
		SaleNumber:       SaleNumber(sale.ID),
		IssuedAt:         sale.CreatedAt.In(t.location).Format("2006-01-02 15:04"),
		OperatorID:       sale.OperatorID,
		RegisterID:       sale.RegisterID,
		Status:           sale.Status,
		Subtotal:         t.money(sale.Subtotal),
		Tax:              t.money(sale.Tax),
		Discount:         t.money(sale.Discount),
		Total:            t.money(sale.Total),
		Lines:            make([]TicketLine, 0, len(sale.Lines)),
		Payments:         make([]TicketPayment, 0, len(sale.Payments)),
		VerificationCode: code,
	}
	for _, l := range sale.Lines {
		view.Lines = append(view.Lines, TicketLine{
			Description: strings.TrimSpace(l.ProductName + " " + l.PresentationName),
			Quantity:    l.Quantity.String(),
			UnitPrice:   t.money(l.UnitPrice),
			Total:       t.money(l.Total),
		})
	}
	for _, p := range sale.Payments {
		view.Payments = append(view.Payments, TicketPayment{
			Kind:     string(p.Kind),
			Tendered: t.money(p.Amount),
			Change:   t.money(p.Change),
			Applied:  t.money(p.EffectiveAmount),
		})
	}
	return view, nil
}

// Verify reports whether code was issued for sale.
func (t *Ticketer) Verify(sale *Sale, code string) bool {
	want, err := t.code(sale)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToUpper(code))) == 1
}

// code is a keyed BLAKE2b digest over id, total and creation time.
func (t *Ticketer) code(sale *Sale) (string, error) {
	h, err := blake2b.New256(t.secret)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%d|%s|%d", sale.ID, sale.Total.StringFixed(2), sale.CreatedAt.Unix())
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))[:10]), nil
}

// SaleNumber is the printed receipt number of a sale id.
func SaleNumber(id int64) string {
	s := strconv.FormatInt(id, 10)
	if len(s) < 8 {
		s = strings.Repeat("0", 8-len(s)) + s
	}
	return "V-" + s
}

// Ticket loads a sale and formats it. A missing sale returns ErrNotFound;
// formatting problems return ErrTicketFormat.
func (s *Service) Ticket(ctx context.Context, id int64) (TicketView, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return TicketView{}, err
	}
	if s.ticketer == nil {
		return TicketView{}, fmt.Errorf("%w: ticketer not configured", ErrTicketFormat)
	}
	return s.ticketer.Format(sale)
}

// VerifyTicket checks a printed verification code against the stored sale.
func (s *Service) VerifyTicket(ctx context.Context, id int64, code string) (bool, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if s.ticketer == nil {
		return false, fmt.Errorf("%w: ticketer not configured", ErrTicketFormat)
	}
	return s.ticketer.Verify(sale, code), nil
}
