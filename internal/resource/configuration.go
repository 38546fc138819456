// ABOUTME: Role-specific resource configurations for the table controller.
// ABOUTME: One controller engine, configured per role with descriptors and permissions.

package resource

import "strings"

// Role is the dashboard role returned by the warehouse API on sign-in.
type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole normalizes a role string. Anything unknown is RoleNone.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	default:
		return RoleNone
	}
}

// Configuration is the set of descriptors offered to one role.
type Configuration struct {
	Role      Role
	Resources []ResourceDescriptor
}

// Lookup finds a descriptor by resource name.
func (c Configuration) Lookup(name string) (ResourceDescriptor, bool) {
	for _, d := range c.Resources {
		if d.Name == name {
			return d, true
		}
	}
	return ResourceDescriptor{}, false
}

// Names returns the resource names in display order.
func (c Configuration) Names() []string {
	names := make([]string, 0, len(c.Resources))
	for _, d := range c.Resources {
		names = append(names, d.Name)
	}
	return names
}

// ConfigurationFor returns the configuration for a role. RoleNone gets no resources.
func ConfigurationFor(role Role) Configuration {
	switch role {
	case RoleAdmin:
		return AdminConfiguration()
	case RoleStaff:
		return StaffConfiguration()
	default:
		return Configuration{Role: RoleNone}
	}
}

// AdminConfiguration offers every collection with full schemas.
func AdminConfiguration() Configuration {
	return Configuration{
		Role: RoleAdmin,
		Resources: []ResourceDescriptor{
			usersDescriptor(),
			productsDescriptor(),
			{
				Name:    "suppliers",
				IDField: "supplier_id",
				Fields: []FieldDescriptor{
					{Name: "supplier_name", Kind: KindText},
					{Name: "contact_info", Kind: KindText},
					{Name: "address", Kind: KindText},
				},
				CanWrite:  true,
				CanDelete: true,
			},
			{
				Name:    "customers",
				IDField: "customer_id",
				Fields: []FieldDescriptor{
					{Name: "customer_name", Kind: KindText},
					{Name: "contact_info", Kind: KindText},
				},
				CanWrite:  true,
				CanDelete: true,
			},
			transactionsDescriptor(),
		},
	}
}

// StaffConfiguration offers products and read-mostly transactions.
func StaffConfiguration() Configuration {
	return Configuration{
		Role: RoleStaff,
		Resources: []ResourceDescriptor{
			productsDescriptor(),
			transactionsDescriptor(),
		},
	}
}

func usersDescriptor() ResourceDescriptor {
	return ResourceDescriptor{
		Name:    "users",
		IDField: "user_id",
		Fields: []FieldDescriptor{
			{Name: "username", Kind: KindText},
			{Name: "password", Kind: KindPassword, Note: "(leave blank to keep old)", Sensitive: true},
			{Name: "role", Kind: KindEnum, Options: []string{string(RoleAdmin), string(RoleStaff)}},
		},
		CanWrite:  true,
		CanDelete: true,
	}
}

func productsDescriptor() ResourceDescriptor {
	return ResourceDescriptor{
		Name:    "products",
		IDField: "product_id",
		Fields: []FieldDescriptor{
			{Name: "product_name", Kind: KindText},
			{Name: "category", Kind: KindText},
			{Name: "unit", Kind: KindText, Placeholder: "pcs"},
			{Name: "unit_price", Kind: KindNumber},
			{Name: "reorder_level", Kind: KindNumber},
		},
		CanWrite:  true,
		CanDelete: true,
	}
}

// Transactions are append-only records written by the warehouse service.
// No schema is declared; the form is never offered.
func transactionsDescriptor() ResourceDescriptor {
	return ResourceDescriptor{
		Name:      "transactions",
		IDField:   "transaction_id",
		CanWrite:  false,
		CanDelete: true,
	}
}
