package user

import "sort"

type Permission string

// Permissions
const (
	PermManageUsers            Permission = "user.manage"
	PermVerifyUsers            Permission = "user.verify"
	PermManageLocations        Permission = "location.manage"
	PermManagePublishers       Permission = "publisher.manage"
	PermManageSchools          Permission = "school.manage"
	PermCreateBook             Permission = "book.create"
	PermManageAllBooks         Permission = "book.manage_all"
	PermManageCatalog          Permission = "catalog.manage"
	PermUseCart                Permission = "cart.use"
	PermPlaceOrder             Permission = "order.place"
	PermViewAllOrders          Permission = "order.view_all"
	PermViewPublisherOrders    Permission = "order.view_publisher"
	PermUpdateOrderStatus      Permission = "order.update_status"
	PermManageOrderWindows     Permission = "order_window.manage"
	PermManagePayments         Permission = "payment.manage"
	PermViewAllPayments        Permission = "payment.view_all"
	PermBroadcastNotifications Permission = "notification.broadcast"
	PermManagePackages         Permission = "package.manage"
	PermViewPackages           Permission = "package.view"
)

var (
	buyerPerms = []Permission{PermUseCart, PermPlaceOrder}

	moderatorPerms = []Permission{
		PermVerifyUsers,
		PermManagePublishers,
		PermManageSchools,
		PermManageAllBooks,
		PermCreateBook,
		PermManageCatalog,
		PermViewAllOrders,
		PermUpdateOrderStatus,
		PermManageOrderWindows,
		PermManagePayments,
		PermViewAllPayments,
		PermBroadcastNotifications,
		PermManagePackages,
		PermViewPackages,
	}

	typePermissions = map[string]map[Permission]struct{}{
		TypeSuperAdmin:        permSet(append([]Permission{PermManageUsers, PermManageLocations}, moderatorPerms...)...),
		TypeModerator:         permSet(moderatorPerms...),
		TypePublisher:         permSet(PermCreateBook, PermViewPublisherOrders),
		TypeSchoolAdmin:       permSet(buyerPerms...),
		TypeInstitutionalUser: permSet(buyerPerms...),
		TypeIndividualUser:    permSet(buyerPerms...),
	}
)

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// HasPerm reports whether the user's type grants the permission.
// Inactive users have no permissions.
func (u User) HasPerm(perm Permission) bool {
	if !u.IsActive {
		return false
	}
	_, ok := typePermissions[u.UserType][perm]
	return ok
}

// HasAnyPerm reports whether the user holds at least one of the permissions.
func (u User) HasAnyPerm(perms ...Permission) bool {
	for _, p := range perms {
		if u.HasPerm(p) {
			return true
		}
	}
	return false
}

// Permissions lists the permissions granted to the user.
func (u User) Permissions() []Permission {
	if !u.IsActive {
		return nil
	}
	set := typePermissions[u.UserType]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
