package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wompi-billing-service/internal/model"
	"wompi-billing-service/internal/repository"

	"gorm.io/gorm"
)

const (
	AccessStatusNone     = "none"
	AccessStatusActive   = "active"
	AccessStatusTrialing = "trialing"
	AccessStatusExpired  = "expired"
	AccessStatusPastDue  = "past_due"
)

type AccessStatus struct {
	Granted   bool       `json:"granted"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	PlanName  string     `json:"plan_name,omitempty"`
	PeriodEnd *time.Time `json:"period_end,omitempty"`
}

// EvaluateAccess derives entitlement from stored billing state. It is a pure
// function of its inputs, including now, so boundary cases are directly
// testable. A past_due subscription keeps access for graceDays after the
// period ends, then is suspended.
func EvaluateAccess(sub *model.Subscription, plan *model.Plan, now time.Time, graceDays int) AccessStatus {
	if sub == nil {
		return AccessStatus{
			Granted: false,
			Status:  AccessStatusNone,
			Message: "no active subscription",
		}
	}

	planName := ""
	if plan != nil {
		planName = plan.Name
	}
	periodEnd := sub.CurrentPeriodEnd

	switch sub.Status {
	case model.SubscriptionStatusActive, model.SubscriptionStatusTrialing:
		status := AccessStatusActive
		if sub.Status == model.SubscriptionStatusTrialing {
			status = AccessStatusTrialing
		}
		if periodEnd.After(now) {
			return AccessStatus{
				Granted:   true,
				Status:    status,
				PlanName:  planName,
				PeriodEnd: &periodEnd,
			}
		}
		return AccessStatus{
			Granted:   false,
			Status:    AccessStatusExpired,
			Message:   "subscription period has expired",
			PlanName:  planName,
			PeriodEnd: &periodEnd,
		}

	case model.SubscriptionStatusPastDue:
		graceEnd := periodEnd.AddDate(0, 0, graceDays)
		if !now.After(graceEnd) {
			return AccessStatus{
				Granted:   true,
				Status:    AccessStatusPastDue,
				Message:   "payment is overdue, please update your payment method",
				PlanName:  planName,
				PeriodEnd: &periodEnd,
			}
		}
		return AccessStatus{
			Granted:   false,
			Status:    AccessStatusPastDue,
			Message:   "subscription suspended for non-payment",
			PlanName:  planName,
			PeriodEnd: &periodEnd,
		}

	default:
		return AccessStatus{
			Granted:   false,
			Status:    AccessStatusNone,
			PlanName:  planName,
			PeriodEnd: &periodEnd,
		}
	}
}

type AccessService interface {
	// CheckWorkspaceAccess loads the workspace's subscription and plan and
	// evaluates entitlement at time.Now. Consumed by API routes gating
	// product features.
	CheckWorkspaceAccess(ctx context.Context, workspaceID string) (AccessStatus, error)
}

type accessServiceImpl struct {
	db               *gorm.DB
	subscriptionRepo repository.SubscriptionRepository
	planRepo         repository.PlanRepository
	graceDays        int
}

func NewAccessService(db *gorm.DB, subscriptionRepo repository.SubscriptionRepository, planRepo repository.PlanRepository, graceDays int) AccessService {
	return &accessServiceImpl{
		db:               db,
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		graceDays:        graceDays,
	}
}

func (s *accessServiceImpl) CheckWorkspaceAccess(ctx context.Context, workspaceID string) (AccessStatus, error) {
	sub, err := s.subscriptionRepo.GetByWorkspace(ctx, s.db, workspaceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EvaluateAccess(nil, nil, time.Now(), s.graceDays), nil
	}
	if err != nil {
		return AccessStatus{}, fmt.Errorf("get subscription: %w", err)
	}

	plan, err := s.planRepo.GetByID(ctx, s.db, sub.PlanID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessStatus{}, fmt.Errorf("get plan: %w", err)
	}

	return EvaluateAccess(sub, plan, time.Now(), s.graceDays), nil
}
