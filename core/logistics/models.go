package logistics

import (
	"io"
	"math"
	"time"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/order"
)

// Package kinds
const (
	KindPublisher   = "publisher"
	KindSchool      = "school"
	KindInstitution = "institution"
	KindCourier     = "courier"
)

// Package statuses
const (
	StatusPending   = "pending"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var (
	Kinds    = []string{KindPublisher, KindSchool, KindInstitution, KindCourier}
	Statuses = []string{StatusPending, StatusInTransit, StatusDelivered, StatusCancelled}

	transitions = map[string][]string{
		StatusPending:   {StatusInTransit, StatusCancelled},
		StatusInTransit: {StatusDelivered, StatusCancelled},
	}

	// orderStatuses maps a package status to the status of the orders it carries.
	orderStatuses = map[string]string{
		StatusInTransit: order.StatusInTransit,
		StatusDelivered: order.StatusCompleted,
		StatusCancelled: order.StatusCancelled,
	}

	codePrefixes = map[string]string{
		KindPublisher:   "PUB",
		KindSchool:      "SCH",
		KindInstitution: "INS",
		KindCourier:     "COU",
	}
)

// CanTransition reports whether a package may move from `from` to `to`.
func CanTransition(from, to string) bool {
	return core.ContainsString(transitions[from], to)
}

type (
	// PackageBook is a book line aggregated over the orders of a package.
	PackageBook struct {
		BookID     string `json:"book_id"`
		Title      string `json:"title"`
		ISBN       string `json:"isbn"`
		Price      int    `json:"price"`
		Quantity   int    `json:"quantity"`
		TotalPrice int    `json:"total_price"`
	}

	// Package groups the orders of a window for a publisher, a school, an institution
	// or, for couriers, a delivery municipality.
	Package struct {
		ID                     string        `json:"id"`
		Code                   string        `json:"code"`
		Kind                   string        `json:"kind"`
		OwnerID                string        `json:"owner_id"`
		OwnerName              string        `json:"owner_name"`
		OrderWindowID          string        `json:"order_window_id"`
		Status                 string        `json:"status"`
		TotalQuantity          int           `json:"total_quantity"`
		TotalPrice             int           `json:"total_price"`
		IsEligibleForIncentive bool          `json:"is_eligible_for_incentive"`
		Incentive              int           `json:"incentive"`
		Books                  []PackageBook `json:"books"`
		OrderIDs               []string      `json:"order_ids"`
		ChildIDs               []string      `json:"child_ids,omitempty"`
		CreatedAt              time.Time     `json:"created_at"`
		UpdatedAt              time.Time     `json:"updated_at"`
	}

	QueryFilter struct {
		IDs           []string
		OrderWindowID string
		Kind          string
		OwnerID       string
		Status        string
	}

	// IncentivePolicy allocates bonus books to school & institution packages.
	IncentivePolicy struct {
		Threshold  int
		Multiplier float64
		Max        int
	}

	// Workbook is a spreadsheet assembled sheet by sheet.
	Workbook interface {
		AddSheet(name string, header []string, rows [][]interface{}) error
		Write(w io.Writer) error
	}
)

func (qf QueryFilter) Match(p Package) bool {
	if len(qf.IDs) > 0 && !core.ContainsString(qf.IDs, p.ID) {
		return false
	}
	if qf.OrderWindowID != "" && p.OrderWindowID != qf.OrderWindowID {
		return false
	}
	if qf.Kind != "" && p.Kind != qf.Kind {
		return false
	}
	if qf.OwnerID != "" && p.OwnerID != qf.OwnerID {
		return false
	}
	if qf.Status != "" && p.Status != qf.Status {
		return false
	}
	return true
}

// Apply returns whether qty is eligible and the number of bonus books:
// min(floor(qty * multiplier), max) once qty reaches the threshold.
func (ip IncentivePolicy) Apply(qty int) (eligible bool, incentive int) {
	if ip.Threshold <= 0 || qty < ip.Threshold {
		return false, 0
	}
	incentive = int(math.Floor(float64(qty) * ip.Multiplier))
	if ip.Max > 0 && incentive > ip.Max {
		incentive = ip.Max
	}
	return true, incentive
}
