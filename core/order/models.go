package order

import (
	"time"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// Order statuses
const (
	StatusPending   = "pending"
	StatusInTransit = "in_transit"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Order window types
const (
	WindowTypeSchool      = "school"
	WindowTypeInstitution = "institution"
)

var (
	Statuses = []string{StatusPending, StatusInTransit, StatusCompleted, StatusCancelled}

	// transitions lists the statuses reachable from each status.
	transitions = map[string][]string{
		StatusPending:   {StatusInTransit, StatusCancelled},
		StatusInTransit: {StatusCompleted, StatusCancelled},
	}
)

// CanTransition reports whether an order may move from `from` to `to`.
func CanTransition(from, to string) bool {
	return core.ContainsString(transitions[from], to)
}

// WindowTypeFor returns the order window type a buyer orders through,
// or "" when the buyer needs no window.
func WindowTypeFor(usr user.User) string {
	switch usr.UserType {
	case user.TypeSchoolAdmin:
		return WindowTypeSchool
	case user.TypeInstitutionalUser:
		return WindowTypeInstitution
	}
	return ""
}

type (
	CartItem struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		BookID    string    `json:"book_id"`
		Quantity  int       `json:"quantity"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// CartLine is a cart item priced with the current book price.
	CartLine struct {
		Item       CartItem `json:"item"`
		Title      string   `json:"title"`
		Price      int      `json:"price"`
		TotalPrice int      `json:"total_price"`
	}

	Cart struct {
		Lines         []CartLine `json:"lines"`
		TotalQuantity int        `json:"total_quantity"`
		TotalPrice    int        `json:"total_price"`
	}

	WishListItem struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		BookID    string    `json:"book_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	OrderWindow struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		WindowType  string    `json:"window_type"`
		StartDate   time.Time `json:"start_date"`
		EndDate     time.Time `json:"end_date"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	NewOrderWindow struct {
		Title       string    `json:"title" validate:"required,notblank,max=255"`
		Description string    `json:"description"`
		WindowType  string    `json:"window_type" validate:"required,oneof=school institution"`
		StartDate   time.Time `json:"start_date" validate:"required"`
		EndDate     time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	}

	UpdateOrderWindow struct {
		Title       *string    `json:"title" validate:"omitempty,notblank,max=255"`
		Description *string    `json:"description"`
		WindowType  *string    `json:"window_type" validate:"omitempty,oneof=school institution"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}

	WindowFilter struct {
		WindowType string
		ActiveAt   time.Time // zero: any
	}

	// BookOrder is an order line, a snapshot of the book when the order was placed.
	BookOrder struct {
		ID          string `json:"id"`
		OrderID     string `json:"order_id"`
		BookID      string `json:"book_id"`
		Title       string `json:"title"`
		ISBN        string `json:"isbn"`
		Edition     string `json:"edition"`
		Price       int    `json:"price"`
		PublisherID string `json:"publisher_id"`
		Image       string `json:"image"`
		Quantity    int    `json:"quantity"`
		TotalPrice  int    `json:"total_price"`
	}

	Order struct {
		ID                 string      `json:"id"`
		OrderCode          string      `json:"order_code"`
		Status             string      `json:"status"`
		CreatedByID        string      `json:"created_by_id"`
		OrderWindowID      string      `json:"order_window_id,omitempty"`
		TotalPrice         int         `json:"total_price"`
		TotalQuantity      int         `json:"total_quantity"`
		AssignedForPackage bool        `json:"assigned_for_package"`
		CreatedAt          time.Time   `json:"created_at"`
		UpdatedAt          time.Time   `json:"updated_at"`
		Books              []BookOrder `json:"books"`
	}

	QueryFilter struct {
		IDs                []string
		Statuses           []string
		OrderWindowID      string
		CreatedByID        string
		PublisherID        string // orders holding at least one book of the publisher
		AssignedForPackage *bool
		Search             string // order code
	}

	// StatusStats aggregates orders sharing a status.
	StatusStats struct {
		Status        string `json:"status" boil:"status"`
		Count         int    `json:"count" boil:"count"`
		TotalQuantity int    `json:"total_quantity" boil:"total_quantity"`
		TotalPrice    int    `json:"total_price" boil:"total_price"`
	}
)

// IsActive reports whether t falls within the window.
func (w OrderWindow) IsActive(t time.Time) bool {
	return !t.Before(w.StartDate) && !t.After(w.EndDate)
}

func (wf WindowFilter) Match(w OrderWindow) bool {
	if wf.WindowType != "" && w.WindowType != wf.WindowType {
		return false
	}
	if !wf.ActiveAt.IsZero() && !w.IsActive(wf.ActiveAt) {
		return false
	}
	return true
}

// PublisherLines returns the order lines holding books of the given publisher.
func (o Order) PublisherLines(publisherID string) []BookOrder {
	var lines []BookOrder
	for _, l := range o.Books {
		if l.PublisherID == publisherID {
			lines = append(lines, l)
		}
	}
	return lines
}

// PublisherIDs lists the publishers whose books are in the order.
func (o Order) PublisherIDs() []string {
	var ids []string
	for _, l := range o.Books {
		if !core.ContainsString(ids, l.PublisherID) {
			ids = append(ids, l.PublisherID)
		}
	}
	return ids
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// Match reports whether o satisfies the filter (used by in-memory storage).
func (qf *QueryFilter) Match(o Order) bool {
	if qf == nil {
		return true
	}
	if len(qf.IDs) > 0 && !core.ContainsString(qf.IDs, o.ID) {
		return false
	}
	if len(qf.Statuses) > 0 && !core.ContainsString(qf.Statuses, o.Status) {
		return false
	}
	if qf.OrderWindowID != "" && o.OrderWindowID != qf.OrderWindowID {
		return false
	}
	if qf.CreatedByID != "" && o.CreatedByID != qf.CreatedByID {
		return false
	}
	if qf.PublisherID != "" && len(o.PublisherLines(qf.PublisherID)) == 0 {
		return false
	}
	if qf.AssignedForPackage != nil && o.AssignedForPackage != *qf.AssignedForPackage {
		return false
	}
	if qf.Search != "" && !core.ContainsFold(qf.Search, o.OrderCode) {
		return false
	}
	return true
}
