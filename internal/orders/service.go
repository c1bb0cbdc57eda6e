package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/amelbouzid/karakou-backend/pkg/db"
	"github.com/amelbouzid/karakou-backend/pkg/db/models"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
)

const (
	orderNumberConstraint = "orders_order_number_key"
	orderNumberAttempts   = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines checkout and order-maintenance operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	EditOrder(ctx context.Context, input EditOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LookupOrder(ctx context.Context, orderNumber, phone string) (*models.Order, error)
	ListTariffs(ctx context.Context) ([]models.DeliveryTariff, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var created *models.Order
	// Order numbers are derived from the current row count, so a concurrent
	// checkout can collide on the unique index. Retry with a fresh count.
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			tariff, err := repo.FindTariff(ctx, input.Wilaya)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "no delivery tariff for wilaya").
						WithDetails(map[string]any{"wilaya": input.Wilaya})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery tariff")
			}
			fee := feeForMethod(tariff, input.Method)

			count, err := repo.CountOrders(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
			}

			subtotal := decimal.Zero
			for _, item := range input.Items {
				subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
			}

			order := &models.Order{
				OrderNumber:        FormatOrderNumber(count + 1),
				CustomerName:       strings.TrimSpace(input.CustomerName),
				CustomerPhone:      normalizePhone(input.CustomerPhone),
				CustomerEmail:      input.CustomerEmail,
				Subtotal:           subtotal,
				DeliveryFee:        fee,
				Total:              subtotal.Add(fee),
				ConfirmationStatus: enums.ConfirmationStatusPending,
				DeliveryStatus:     enums.DeliveryStatusNotReady,
			}
			if _, err := repo.CreateOrder(ctx, order); err != nil {
				return err
			}

			items := buildItems(order.ID, input.Items)
			if err := repo.CreateOrderItems(ctx, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
			}

			assignment := &models.DeliveryAssignment{
				OrderID:     order.ID,
				Wilaya:      input.Wilaya,
				Method:      input.Method,
				DeskCode:    input.DeskCode,
				Address:     input.Address,
				DeliveryFee: fee,
			}
			if _, err := repo.CreateAssignment(ctx, assignment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery assignment")
			}

			order.Items = items
			order.Assignment = assignment
			created = order
			return nil
		})
		if err == nil {
			return created, nil
		}
		if db.IsUniqueViolation(err, orderNumberConstraint) {
			continue
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not allocate an order number")
}

func (s *service) EditOrder(ctx context.Context, input EditOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		editable := order.ConfirmationStatus == enums.ConfirmationStatusPending ||
			order.ConfirmationStatus == enums.ConfirmationStatusDelayed
		if !editable || order.HasShipment() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order can no longer be edited").
				WithDetails(map[string]any{"confirmation_status": order.ConfirmationStatus})
		}

		subtotal := decimal.Zero
		for _, item := range input.Items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
		}
		total := subtotal.Add(order.DeliveryFee)

		expected := order.ConfirmationStatus
		rows, err := repo.UpdateOrderGuarded(ctx, GuardedUpdate{
			OrderID:              order.ID,
			ExpectedConfirmation: &expected,
			RequireNoShipment:    true,
			Updates: map[string]any{
				"customer_name":  strings.TrimSpace(input.CustomerName),
				"customer_phone": normalizePhone(input.CustomerPhone),
				"customer_email": input.CustomerEmail,
				"subtotal":       subtotal,
				"total":          total,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if rows == 0 {
			return GuardConflict(ctx, repo, order.ID)
		}

		items := buildItems(order.ID, input.Items)
		if err := repo.ReplaceOrderItems(ctx, order.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
		}

		order.CustomerName = strings.TrimSpace(input.CustomerName)
		order.CustomerPhone = normalizePhone(input.CustomerPhone)
		order.CustomerEmail = input.CustomerEmail
		order.Subtotal = subtotal
		order.Total = total
		order.Items = items
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) LookupOrder(ctx context.Context, orderNumber, phone string) (*models.Order, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if strings.TrimSpace(phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}

	order, err := s.repo.FindOrderByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// The phone acts as a shared secret for the public tracking page, so a
	// mismatch reads the same as a missing order.
	if normalizePhone(phone) != normalizePhone(order.CustomerPhone) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListTariffs(ctx context.Context) ([]models.DeliveryTariff, error) {
	tariffs, err := s.repo.ListTariffs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery tariffs")
	}
	return tariffs, nil
}

// GuardConflict classifies a zero-row guarded update by re-reading the order.
func GuardConflict(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	if _, err := repo.FindOrder(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently")
}

// FormatOrderNumber renders the human-facing order reference.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("KRK-%06d", seq)
}

func feeForMethod(tariff *models.DeliveryTariff, method enums.DeliveryMethod) decimal.Decimal {
	if method == enums.DeliveryMethodDesk {
		return tariff.DeskFee
	}
	return tariff.HomeFee
}

func buildItems(orderID uuid.UUID, inputs []ItemInput) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			ProductID: in.ProductID,
			Name:      in.Name,
			Size:      in.Size,
			UnitPrice: in.UnitPrice,
			Qty:       in.Qty,
			LineTotal: in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Qty))),
		})
	}
	return items
}

func validateCreateInput(input CreateOrderInput) error {
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if strings.TrimSpace(input.Wilaya) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "wilaya required")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery method must be home or desk")
	}
	if input.Method == enums.DeliveryMethodDesk && (input.DeskCode == nil || strings.TrimSpace(*input.DeskCode) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "desk code required for desk delivery")
	}
	if input.Method == enums.DeliveryMethodHome && (input.Address == nil || strings.TrimSpace(*input.Address) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "address required for home delivery")
	}
	return validateItems(input.Items)
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if strings.TrimSpace(item.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
		}
	}
	return nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		switch r {
		case ' ', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
