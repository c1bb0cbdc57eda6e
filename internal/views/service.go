package views

import (
	"context"
	"fmt"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/pagination"
)

type queueReader interface {
	ConfirmationQueue(ctx context.Context, params pagination.Params) (*ConfirmationQueueList, error)
	DeliveryQueue(ctx context.Context, status enums.DeliveryStatus, params pagination.Params) (*DeliveryQueueList, error)
	WilayaStats(ctx context.Context) ([]WilayaStat, error)
}

// Service exposes the read-only queues, scoped by staff role.
type Service interface {
	ConfirmationQueue(ctx context.Context, role enums.StaffRole, params pagination.Params) (*ConfirmationQueueList, error)
	DeliveryQueue(ctx context.Context, role enums.StaffRole, status enums.DeliveryStatus, params pagination.Params) (*DeliveryQueueList, error)
	WilayaStats(ctx context.Context, role enums.StaffRole) ([]WilayaStat, error)
}

type service struct {
	reader queueReader
}

// NewService builds the views service.
func NewService(reader queueReader) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("queue reader required")
	}
	return &service{reader: reader}, nil
}

func (s *service) ConfirmationQueue(ctx context.Context, role enums.StaffRole, params pagination.Params) (*ConfirmationQueueList, error) {
	if !role.CanConfirm() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "confirmation queue requires a call-center role")
	}
	list, err := s.reader.ConfirmationQueue(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load confirmation queue")
	}
	return list, nil
}

func (s *service) DeliveryQueue(ctx context.Context, role enums.StaffRole, status enums.DeliveryStatus, params pagination.Params) (*DeliveryQueueList, error) {
	if !role.CanDeliver() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery queue requires a logistics role")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status filter")
	}
	list, err := s.reader.DeliveryQueue(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery queue")
	}
	return list, nil
}

func (s *service) WilayaStats(ctx context.Context, role enums.StaffRole) ([]WilayaStat, error) {
	if !role.CanDeliver() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wilaya stats require a logistics role")
	}
	stats, err := s.reader.WilayaStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wilaya stats")
	}
	return stats, nil
}
