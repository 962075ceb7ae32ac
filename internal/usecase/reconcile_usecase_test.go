package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/gateway"
	"storefront/internal/logger"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type reconcileEnv struct {
	tx     *TxManagerMock
	orders *OrderRepoMock
	users  *UserRepoMock
	uc     *usecase.ReconcileUsecase
}

func newReconcileEnv(gws ...gateway.PaymentGateway) *reconcileEnv {
	e := &reconcileEnv{
		orders: new(OrderRepoMock),
		users:  new(UserRepoMock),
	}
	e.tx = &TxManagerMock{Repos: &TxReposMock{
		orders:     e.orders,
		orderItems: new(OrderItemRepoMock),
		users:      e.users,
		products:   new(ProductRepoMock),
		auditLogs:  new(AuditLogRepoMock),
	}}
	l := logger.NewTest()
	stats := usecase.NewStatsUsecase(e.tx, e.users, l)
	e.uc = usecase.NewReconcileUsecase(e.tx, gateway.NewRegistry(gws...), stats, l)
	return e
}

func approvedEvent(orderID string) model.PaymentEvent {
	return model.PaymentEvent{
		Provider:          "wompi",
		PaymentID:         "txn-1",
		Status:            model.PaymentStatusApproved,
		Amount:            70000,
		ExternalReference: orderID,
	}
}

func TestApprovedEventConfirmsPendingOrder(t *testing.T) {
	e := newReconcileEnv()
	ctx := context.Background()
	userID := int64(7)

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", UserID: &userID, Status: model.OrderStatusPending, Total: 70000}, nil)
	e.orders.On("UpdateStatusFrom", mock.Anything, "order-1", model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(true, nil)
	e.orders.On("UpdatePayment", mock.Anything, "order-1", "txn-1", "wompi").Return(nil)

	//確定後の統計再計算
	e.users.On("FindByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)
	e.orders.On("ListByUserID", mock.Anything, userID).Return([]model.Order{
		{ID: "order-1", Status: model.OrderStatusConfirmed, Total: 70000},
	}, nil)
	e.users.On("UpdateStats", mock.Anything, userID, int64(1), int64(70000), mock.Anything).Return(nil)

	out, err := e.uc.HandlePaymentEvent(ctx, approvedEvent("order-1"))
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultApplied, out.Result)
	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
	e.orders.AssertCalled(t, "UpdatePayment", mock.Anything, "order-1", "txn-1", "wompi")
	e.users.AssertCalled(t, "UpdateStats", mock.Anything, userID, int64(1), int64(70000), mock.Anything)
}

func TestDuplicateApprovedEventIsNoOp(t *testing.T) {
	e := newReconcileEnv()
	userID := int64(7)

	//1通目が反映済みの状態で同じイベントが再配送される
	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", UserID: &userID, Status: model.OrderStatusConfirmed, PaymentID: "txn-1"}, nil)

	out, err := e.uc.HandlePaymentEvent(context.Background(), approvedEvent("order-1"))
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultNoOp, out.Result)

	//2回目は書き込みも統計再計算も起こさない
	e.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	e.users.AssertNotCalled(t, "UpdateStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectedEventCancelsPendingOrder(t *testing.T) {
	e := newReconcileEnv()

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusPending}, nil)
	e.orders.On("UpdateStatusFrom", mock.Anything, "order-1", model.OrderStatusPending, model.OrderStatusCancelled).
		Return(true, nil)
	e.orders.On("UpdatePayment", mock.Anything, "order-1", "txn-1", "wompi").Return(nil)

	ev := approvedEvent("order-1")
	ev.Status = model.PaymentStatusRejected

	out, err := e.uc.HandlePaymentEvent(context.Background(), ev)
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultApplied, out.Result)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	//キャンセルは完了集合に入らないので統計は触らない
	e.users.AssertNotCalled(t, "UpdateStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApprovedAfterCancelledStaysCancelled(t *testing.T) {
	e := newReconcileEnv()

	//rejectedで閉じた注文に遅れてapprovedが届く（順不同配送）
	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusCancelled}, nil)

	out, err := e.uc.HandlePaymentEvent(context.Background(), approvedEvent("order-1"))
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultNoOp, out.Result)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	e.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStaleRejectedAfterDeliveredIsSkipped(t *testing.T) {
	e := newReconcileEnv()

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusDelivered}, nil)

	ev := approvedEvent("order-1")
	ev.Status = model.PaymentStatusRejected

	out, err := e.uc.HandlePaymentEvent(context.Background(), ev)
	assert.NoError(t, err)
	//進んだ状態は巻き戻さない（記録だけ残す）
	assert.Equal(t, usecase.ResultAnomalySkipped, out.Result)
	assert.Equal(t, model.OrderStatusDelivered, out.Status)
	e.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnknownOrderReferenceIsLoggedNotFailed(t *testing.T) {
	e := newReconcileEnv()

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "ghost").Return(model.Order{}, repo.ErrNotFound)

	out, err := e.uc.HandlePaymentEvent(context.Background(), approvedEvent("ghost"))
	//再送しても解決しないのでエラーにはしない
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultOrderNotFound, out.Result)
}

func TestPendingEventRecordsPaymentWithoutTransition(t *testing.T) {
	e := newReconcileEnv()

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusPending}, nil)
	e.orders.On("UpdatePayment", mock.Anything, "order-1", "txn-1", "wompi").Return(nil)

	ev := approvedEvent("order-1")
	ev.Status = model.PaymentStatusPending

	out, err := e.uc.HandlePaymentEvent(context.Background(), ev)
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultNoOp, out.Result)
	assert.Equal(t, model.OrderStatusPending, out.Status)
	e.orders.AssertCalled(t, "UpdatePayment", mock.Anything, "order-1", "txn-1", "wompi")
	e.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStatsFailureDoesNotRollBackConfirmation(t *testing.T) {
	e := newReconcileEnv()
	userID := int64(7)

	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", UserID: &userID, Status: model.OrderStatusPending}, nil)
	e.orders.On("UpdateStatusFrom", mock.Anything, "order-1", model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(true, nil)
	e.orders.On("UpdatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	//統計側のDBエラー
	e.users.On("FindByID", mock.Anything, userID).Return(model.User{}, errors.New("db down"))

	out, err := e.uc.HandlePaymentEvent(context.Background(), approvedEvent("order-1"))
	//入金は確定したまま返す
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultApplied, out.Result)
	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
}

func TestLostConditionalUpdateRaceReReadsOutcome(t *testing.T) {
	e := newReconcileEnv()

	//条件付き更新で別workerに負けたが、相手が同じ状態へ進めていた
	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusPending}, nil).Once()
	e.orders.On("UpdateStatusFrom", mock.Anything, "order-1", model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(false, nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusConfirmed}, nil).Once()

	out, err := e.uc.HandlePaymentEvent(context.Background(), approvedEvent("order-1"))
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultNoOp, out.Result)
	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
	//負けた側は支払いIDも書かない
	e.orders.AssertNotCalled(t, "UpdatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPaymentFlowsThroughSameReconciliation(t *testing.T) {
	gw := &GatewayMock{GatewayName: "wompi"}
	e := newReconcileEnv(gw)

	gw.On("FetchStatus", mock.Anything, "txn-1").Return(approvedEvent("order-1"), nil)
	e.tx.On("WithinTx", mock.Anything).Return(nil)
	e.orders.On("FindByID", mock.Anything, "order-1").
		Return(model.Order{ID: "order-1", Status: model.OrderStatusConfirmed}, nil)

	//webhook側で反映済みなら手動照会は冪等にno_op
	out, err := e.uc.VerifyPayment(context.Background(), "wompi", "txn-1")
	assert.NoError(t, err)
	assert.Equal(t, usecase.ResultNoOp, out.Result)
}

func TestVerifyPaymentUnknownProvider(t *testing.T) {
	e := newReconcileEnv()

	_, err := e.uc.VerifyPayment(context.Background(), "stripe", "txn-1")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestVerifyPaymentGatewayErrorIsBadGateway(t *testing.T) {
	gw := &GatewayMock{GatewayName: "wompi"}
	e := newReconcileEnv(gw)

	gw.On("FetchStatus", mock.Anything, "txn-1").
		Return(model.PaymentEvent{}, gateway.NewError("wompi", 500, "upstream down"))

	_, err := e.uc.VerifyPayment(context.Background(), "wompi", "txn-1")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, he.Status)
	assert.Equal(t, "upstream down", he.Message)
	e.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}
