package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
	OrderTypeBracket   OrderType = "BRACKET"
)

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusOpen     OrderStatus = "OPEN"
	OrderStatusPartial  OrderStatus = "PARTIAL"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
)

// OrderRequest is the external shape submitted to the order engine,
// created from a Signal or supplied directly.
type OrderRequest struct {
	Symbol   string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side     Side      `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type     OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT STOP STOP_LIMIT BRACKET"`
	Quantity float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// Price is the limit price. Required for LIMIT and STOP_LIMIT.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// StopPrice is the trigger price. Required for STOP and STOP_LIMIT.
	StopPrice optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
	// TakeProfit and StopLoss are the bracket legs. Both required for BRACKET.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	StopLoss   optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
}

// Validate checks the request's struct tags plus the per-type required
// price fields. LIMIT and STOP_LIMIT need a positive limit price, STOP and
// STOP_LIMIT a positive stop price, BRACKET both bracket legs.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	switch r.Type {
	case OrderTypeLimit, OrderTypeStopLimit:
		if !hasPositive(r.Price) {
			return errors.Newf(errors.ErrCodeMissingLimitPrice, "%s order requires a positive limit price", r.Type)
		}
	}

	switch r.Type {
	case OrderTypeStop, OrderTypeStopLimit:
		if !hasPositive(r.StopPrice) {
			return errors.Newf(errors.ErrCodeMissingStopPrice, "%s order requires a positive stop price", r.Type)
		}
	}

	if r.Type == OrderTypeBracket {
		if !hasPositive(r.TakeProfit) || !hasPositive(r.StopLoss) {
			return errors.New(errors.ErrCodeMissingBracketLegs, "BRACKET order requires both take-profit and stop-loss prices")
		}
	}

	return nil
}

func hasPositive(v optional.Option[float64]) bool {
	if v.IsNone() {
		return false
	}

	value, err := v.Take()
	if err != nil {
		return false
	}

	return value > 0
}

// Order is a live order held by the simulation engine.
type Order struct {
	ID             string                   `yaml:"id" json:"id"`
	Symbol         string                   `yaml:"symbol" json:"symbol"`
	Side           Side                     `yaml:"side" json:"side"`
	Type           OrderType                `yaml:"type" json:"type"`
	Quantity       float64                  `yaml:"quantity" json:"quantity"`
	FilledQuantity float64                  `yaml:"filled_quantity" json:"filled_quantity"`
	AvgFillPrice   float64                  `yaml:"avg_fill_price" json:"avg_fill_price"`
	Price          optional.Option[float64] `yaml:"price" json:"price"`
	StopPrice      optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
	TakeProfit     optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	StopLoss       optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	Status         OrderStatus              `yaml:"status" json:"status"`
	// RejectReason is set when the engine rejects the order.
	RejectReason string    `yaml:"reject_reason" json:"reject_reason"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
	Fills        []Fill    `yaml:"fills" json:"fills"`
}

// RemainingQuantity returns the unfilled part of the order.
func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}

// IsTerminal reports whether the order can no longer change.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Fill is one execution against an order. Immutable once created.
type Fill struct {
	OrderID  string  `yaml:"order_id" json:"order_id"`
	Symbol   string  `yaml:"symbol" json:"symbol"`
	Side     Side    `yaml:"side" json:"side"`
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// Price is the execution price after slippage.
	Price float64 `yaml:"price" json:"price"`
	// Slippage is the adverse adjustment applied relative to the raw
	// market price: always >= 0.
	Slippage  float64   `yaml:"slippage" json:"slippage"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}
