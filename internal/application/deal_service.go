package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/provisioning"
)

// DealService registers deals and their purchased product lines.
type DealService struct {
	store       persistence.Store
	rules       provisioning.Rules
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDealService constructs a deal service with the provided dependencies.
func NewDealService(store persistence.Store, rules provisioning.Rules, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DealService {
	if idGenerator == nil {
		idGenerator = NewID
	}
	if now == nil {
		now = time.Now
	}
	return &DealService{store: store, rules: rules, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *DealService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DealService", operation, attrs...)
}

// CreateDeal validates and stores a deal with its product lines.
func (s *DealService) CreateDeal(ctx context.Context, input DealInput) (view DealView, err error) {
	if s == nil {
		return DealView{}, fmt.Errorf("DealService is nil")
	}
	ctx, span := startSpan(ctx, "DealService.CreateDeal")
	logger := s.loggerWith(ctx, "CreateDeal")
	defer func() {
		logOutcome(ctx, logger, err, "deal created", "deal_id", view.ID, "lines", len(view.Lines))
		finishSpan(span, err)
	}()

	now := s.now().UTC()
	deal := persistence.Deal{
		ID:               strings.TrimSpace(input.ID),
		Title:            strings.TrimSpace(input.Title),
		OrganizationName: strings.TrimSpace(input.OrganizationName),
		DefaultAddress:   normalizeOptionalString(input.DefaultAddress),
		DefaultSite:      normalizeOptionalString(input.DefaultSite),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if deal.ID == "" {
		deal.ID = s.idGenerator()
	}

	vErr := &ValidationError{}
	if deal.Title == "" {
		vErr.add("title", "title is required")
	}

	lines := make([]persistence.ProductLine, 0, len(input.Lines))
	for i, in := range input.Lines {
		line, lineErr := s.buildLine(deal.ID, i, in, now)
		vErr.merge(lineErr)
		lines = append(lines, line)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.store.CreateDeal(ctx, deal, lines); err != nil {
		err = mapRepoError(err, "id")
		return
	}

	view = s.dealView(deal, lines, 0)
	return
}

// GetDeal returns a deal with its lines and current session count.
func (s *DealService) GetDeal(ctx context.Context, dealID string) (view DealView, err error) {
	if s == nil {
		return DealView{}, fmt.Errorf("DealService is nil")
	}
	ctx, span := startSpan(ctx, "DealService.GetDeal", attribute.String("deal.id", dealID))
	defer func() { finishSpan(span, err) }()

	deal, err := s.store.GetDeal(ctx, strings.TrimSpace(dealID))
	if err != nil {
		err = mapRepoError(err, "deal_id")
		return
	}
	lines, err := s.store.ListProductLines(ctx, deal.ID)
	if err != nil {
		return
	}
	count, err := s.store.CountSessionsByDeal(ctx, deal.ID)
	if err != nil {
		return
	}
	return s.dealView(deal, lines, count), nil
}

// ListDeals returns every registered deal.
func (s *DealService) ListDeals(ctx context.Context) ([]persistence.Deal, error) {
	if s == nil {
		return nil, fmt.Errorf("DealService is nil")
	}
	return s.store.ListDeals(ctx)
}

// DeleteDeal removes a deal; its lines and sessions go with it.
func (s *DealService) DeleteDeal(ctx context.Context, dealID string) (err error) {
	if s == nil {
		return fmt.Errorf("DealService is nil")
	}
	ctx, span := startSpan(ctx, "DealService.DeleteDeal", attribute.String("deal.id", dealID))
	logger := s.loggerWith(ctx, "DeleteDeal", "deal_id", dealID)
	defer func() {
		logOutcome(ctx, logger, err, "deal deleted")
		finishSpan(span, err)
	}()

	if err = s.store.DeleteDeal(ctx, strings.TrimSpace(dealID)); err != nil {
		err = mapRepoError(err, "deal_id")
	}
	return
}

func (s *DealService) buildLine(dealID string, index int, in ProductLineInput, now time.Time) (persistence.ProductLine, *ValidationError) {
	vErr := &ValidationError{}
	prefix := fmt.Sprintf("lines[%d].", index)

	line := persistence.ProductLine{
		ID:          strings.TrimSpace(in.ID),
		DealID:      dealID,
		ProductCode: strings.TrimSpace(in.ProductCode),
		ProductName: strings.TrimSpace(in.ProductName),
		// Lines keep their input order through the creation timestamp.
		CreatedAt: now.Add(time.Duration(index) * time.Millisecond),
	}
	if line.ID == "" {
		line.ID = s.idGenerator()
	}
	if line.ProductCode == "" {
		vErr.add(prefix+"product_code", "product code is required")
	}

	quantity, err := parseNonNegativeDecimal(in.Quantity, false)
	if err != nil {
		vErr.add(prefix+"quantity", err.Error())
	} else if quantity.Round(0).GreaterThan(maxLineQuantity) {
		vErr.add(prefix+"quantity", fmt.Sprintf("must be at most %d", provisioning.MaxSessionsPerLine))
	}
	line.Quantity = quantity

	hours, err := parseNonNegativeDecimal(in.Hours, true)
	if err != nil {
		vErr.add(prefix+"hours", err.Error())
	} else if hours.GreaterThan(maxLineHours) {
		vErr.add(prefix+"hours", fmt.Sprintf("must be at most %s", maxLineHours))
	}
	line.Hours = hours

	return line, vErr
}

func (s *DealService) dealView(deal persistence.Deal, lines []persistence.ProductLine, count int) DealView {
	views := make([]ProductLineView, 0, len(lines))
	for _, line := range lines {
		views = append(views, newProductLineView(line, s.rules))
	}
	return DealView{Deal: deal, Lines: views, SessionCount: count}
}

var (
	maxLineQuantity = decimal.NewFromInt(provisioning.MaxSessionsPerLine)
	// maxLineHours bounds the duration derived for a single session.
	maxLineHours = decimal.NewFromInt(1000)
)

func parseNonNegativeDecimal(value string, optional bool) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
