package notification

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/user"
)

// OrderPlacedEmail is the data of the "order_placed" email template.
type OrderPlacedEmail struct {
	Name          string
	OrderCode     string
	TotalQuantity int
	TotalPrice    int
}

// OrderNotifier fans order events out to in-app notifications and emails.
type OrderNotifier struct {
	svc    *Service
	tasks  core.TaskQueue
	logger core.Logger
}

var _ order.Observer = (*OrderNotifier)(nil)

func NewOrderNotifier(svc *Service, tasks core.TaskQueue, logger core.Logger) *OrderNotifier {
	return &OrderNotifier{svc: svc, tasks: tasks, logger: logger}
}

// OrderPlaced notifies the buyer and every active user of the publishers involved,
// then emails the buyer.
func (n *OrderNotifier) OrderPlaced(ctx context.Context, o order.Order, buyer user.User) error {
	title := fmt.Sprintf("Order %s placed", o.OrderCode)
	body := fmt.Sprintf("Your order of %d book(s) for Rs. %d has been placed.", o.TotalQuantity, o.TotalPrice)
	if err := n.svc.Notify(ctx, []string{buyer.ID}, TypeOrderPlaced, title, body, o.ID); err != nil {
		return errors.Wrap(err, "notifying buyer")
	}

	active := true
	for _, pubID := range o.PublisherIDs() {
		usrs, err := n.svc.users.Query(ctx, &user.QueryFilter{PublisherID: pubID, IsActive: &active}, nil)
		if err != nil {
			return errors.Wrap(err, "finding publisher users")
		}
		if len(usrs) == 0 {
			continue
		}
		lines := o.PublisherLines(pubID)
		qty := 0
		titles := make([]string, 0, len(lines))
		for _, l := range lines {
			qty += l.Quantity
			titles = append(titles, l.Title)
		}
		ids := make([]string, 0, len(usrs))
		for _, u := range usrs {
			ids = append(ids, u.ID)
		}
		pubTitle := fmt.Sprintf("New order %s", o.OrderCode)
		pubBody := fmt.Sprintf("%d copies ordered: %s.", qty, strings.Join(titles, ", "))
		if err = n.svc.Notify(ctx, ids, TypeOrderReceived, pubTitle, pubBody, o.ID); err != nil {
			return errors.Wrap(err, "notifying publisher users")
		}
	}

	msg := core.EmailMessage{
		To:           []mail.Address{{Name: buyer.FullName, Address: buyer.Email}},
		Subject:      title,
		TemplateName: "order_placed",
		TemplateData: OrderPlacedEmail{
			Name:          buyer.FullName,
			OrderCode:     o.OrderCode,
			TotalQuantity: o.TotalQuantity,
			TotalPrice:    o.TotalPrice,
		},
	}
	return errors.Wrap(n.tasks.Enqueue(ctx, core.TaskSendEmail, msg), "enqueueing order placed email")
}

// OrderStatusChanged notifies the buyer.
func (n *OrderNotifier) OrderStatusChanged(ctx context.Context, o order.Order, prevStatus string) error {
	title := fmt.Sprintf("Order %s is %s", o.OrderCode, humanize(o.Status))
	body := fmt.Sprintf("Your order %s moved from %s to %s.", o.OrderCode, humanize(prevStatus), humanize(o.Status))
	return n.svc.Notify(ctx, []string{o.CreatedByID}, TypeOrderStatusChanged, title, body, o.ID)
}

func humanize(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
